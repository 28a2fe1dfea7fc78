// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, planner, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeComponentNotFound        = "COMPONENT_NOT_FOUND"
	ErrCodeFolderNotFound           = "FOLDER_NOT_FOUND"
	ErrCodeLessonNotFound           = "LESSON_NOT_FOUND"
	ErrCodeResourceNotFound         = "RESOURCE_NOT_FOUND"
	ErrCodeEvaluationNotFound       = "EVALUATION_NOT_FOUND"
	ErrCodeHolidayNotFound          = "HOLIDAY_NOT_FOUND"
	ErrCodeValidationFailed         = "VALIDATION_FAILED"
	ErrCodeInvalidDate              = "INVALID_DATE"
	ErrCodeInvalidCategory          = "INVALID_CATEGORY"
	ErrCodeEvaluationWeightExceeded = "EVALUATION_WEIGHT_EXCEEDED"
	ErrCodeInvalidURL               = "INVALID_URL"
	ErrCodeSSRFBlocked              = "SSRF_BLOCKED"
	ErrCodePreviewFailed            = "PREVIEW_FAILED"
	ErrCodeUnauthorized             = "UNAUTHORIZED"
	ErrCodeInvalidRequest           = "INVALID_REQUEST"
)

// NewComponentNotFoundError はコンポーネント未検出エラーを生成する。
func NewComponentNotFoundError(componentID string) *APIError {
	return &APIError{
		Code:     ErrCodeComponentNotFound,
		Message:  fmt.Sprintf("component not found: %s", componentID),
		Category: "planner",
		Action:   "Check the component ID.",
	}
}

// NewFolderNotFoundError はフォルダ未検出エラーを生成する。
func NewFolderNotFoundError(folderID string) *APIError {
	return &APIError{
		Code:     ErrCodeFolderNotFound,
		Message:  fmt.Sprintf("folder not found: %s", folderID),
		Category: "planner",
		Action:   "Check the folder ID.",
	}
}

// NewLessonNotFoundError は授業未検出エラーを生成する。
func NewLessonNotFoundError(lessonID string) *APIError {
	return &APIError{
		Code:     ErrCodeLessonNotFound,
		Message:  fmt.Sprintf("lesson not found: %s", lessonID),
		Category: "planner",
		Action:   "Check the lesson ID.",
	}
}

// NewResourceNotFoundError はリソース未検出エラーを生成する。
func NewResourceNotFoundError(resourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("resource not found: %s", resourceID),
		Category: "resource",
		Action:   "Check the resource ID.",
	}
}

// NewEvaluationNotFoundError は評価未検出エラーを生成する。
func NewEvaluationNotFoundError(evaluationID string) *APIError {
	return &APIError{
		Code:     ErrCodeEvaluationNotFound,
		Message:  fmt.Sprintf("evaluation not found: %s", evaluationID),
		Category: "planner",
		Action:   "Check the evaluation ID.",
	}
}

// NewHolidayNotFoundError は休日未検出エラーを生成する。
func NewHolidayNotFoundError(holidayID string) *APIError {
	return &APIError{
		Code:     ErrCodeHolidayNotFound,
		Message:  fmt.Sprintf("holiday not found: %s", holidayID),
		Category: "planner",
		Action:   "Check the holiday ID.",
	}
}

// NewValidationError は入力値検証エラーを生成する。
// fieldsにはフィールドごとのメッセージを渡す。
func NewValidationError(fields []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("invalid input: %s", strings.Join(fields, "; ")),
		Category: "validation",
		Action:   "Fix the listed fields and try again.",
	}
}

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("invalid date: %q", value),
		Category: "validation",
		Action:   "Use the YYYY-MM-DD format.",
	}
}

// NewInvalidCategoryError は未定義の区分・種別が指定された場合のエラーを生成する。
func NewInvalidCategoryError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("unknown category: %q", value),
		Category: "validation",
		Action:   "Use one of the documented values.",
	}
}

// NewEvaluationWeightExceededError は評価比重の合計が上限を超える場合のエラーを生成する。
func NewEvaluationWeightExceededError(total int) *APIError {
	return &APIError{
		Code:     ErrCodeEvaluationWeightExceeded,
		Message:  fmt.Sprintf("evaluation weights would total %d (max %d)", total, MaxEvaluationWeight),
		Category: "planner",
		Action:   "Lower the weight of this or another evaluation of the component.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a URL starting with http:// or https://.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "access to the given URL is blocked by the security policy",
		Category: "validation",
		Action:   "Use a public website URL. Local and private network addresses are not allowed.",
	}
}

// NewPreviewFailedError はリソースプレビュー取得失敗エラーを生成する。
func NewPreviewFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePreviewFailed,
		Message:  fmt.Sprintf("could not load a preview: %s", reason),
		Category: "resource",
		Action:   "Check the URL and try again later.",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "authentication required",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewInvalidRequestError はリクエストボディやクエリの解析エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("malformed request: %s", reason),
		Category: "validation",
		Action:   "Send a well-formed JSON body.",
	}
}
