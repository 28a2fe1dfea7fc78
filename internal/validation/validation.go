// Package validation はリクエストボディの入力値検証を提供する。
// 構造体のvalidateタグで検証し、失敗はVALIDATION_FAILEDのAPIErrorに変換する。
package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
)

// カスタム検証タグ
const (
	tagNotBlank          = "notblank"
	tagComponentCategory = "component_category"
	tagResourceType      = "resource_type"
	tagEvaluationType    = "evaluation_type"
	tagWeekday           = "weekday"
	tagDate              = "date"
	tagRecurrenceMode    = "recurrence_mode"
)

var customMessages = map[string]string{
	tagNotBlank:          "{0} cannot be blank",
	tagComponentCategory: "{0} must be one of abertura, desenvolvimento, fechamento",
	tagResourceType:      "{0} must be one of document, video, link, book, podcast, activity",
	tagEvaluationType:    "{0} must be one of exam, assignment, project, presentation, quiz, participation",
	tagWeekday:           "{0} must be a weekday between 0 (Sunday) and 6 (Saturday)",
	tagDate:              "{0} must be a date in the YYYY-MM-DD format",
	tagRecurrenceMode:    "{0} must be offset or forward",
}

// Validator はvalidator.Validateと英語の翻訳器をまとめたもの。
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New はカスタムタグと英語メッセージを登録したValidatorを生成する。
func New() *Validator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	// エラーメッセージには構造体のフィールド名ではなくJSONのキー名を使う
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(tagNotBlank, notBlank)
	_ = validate.RegisterValidation(tagComponentCategory, func(fl validator.FieldLevel) bool {
		return model.ComponentCategory(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(tagResourceType, func(fl validator.FieldLevel) bool {
		return model.ResourceType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(tagEvaluationType, func(fl validator.FieldLevel) bool {
		return model.EvaluationType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(tagWeekday, weekday)
	_ = validate.RegisterValidation(tagDate, date)
	_ = validate.RegisterValidation(tagRecurrenceMode, func(fl validator.FieldLevel) bool {
		return planning.RecurrenceMode(fl.Field().String()).Valid()
	})

	for tag, text := range customMessages {
		text := text
		_ = validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, text, true) },
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, err := ut.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
	}

	return &Validator{validate: validate, trans: trans}
}

// Struct は構造体を検証する。
// 検証失敗時はフィールドごとのメッセージを含むVALIDATION_FAILEDのAPIErrorを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Translate(v.trans))
	}
	return model.NewValidationError(fields)
}

// Custom Validators

func notBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

// weekday はint値が0〜6の範囲かを検証する（[]intにはdiveと組み合わせて使う）。
func weekday(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	}
	return false
}

// date は文字列がYYYY-MM-DD形式の日付かを検証する。空文字はomitemptyで扱う。
func date(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, err := time.Parse(model.DateLayout, fl.Field().String())
	return err == nil
}
