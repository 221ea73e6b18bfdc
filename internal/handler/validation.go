package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/moodmap/internal/model"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator はリクエストDTO用のバリデーターを返す。
// フィールド名にはjsonタグの名前を使う。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// mood_emoji は投稿可能な絵文字のみを許可する
		if err := validate.RegisterValidation("mood_emoji", func(fl validator.FieldLevel) bool {
			return model.IsKnownEmoji(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("failed to register mood_emoji validator: %v", err))
		}
	})
	return validate
}

// validateRequest はリクエストDTOを検証し、最初の違反をAPIErrorに変換する。
func validateRequest(req any) *model.APIError {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationFailedError(err.Error())
	}
	return translateFieldError(verrs[0])
}

// translateFieldError はフィールド単位の検証エラーをドメインのエラーコードに対応付ける。
func translateFieldError(fe validator.FieldError) *model.APIError {
	switch fe.Field() {
	case "phone_number":
		return model.NewInvalidPhoneError()
	case "emoji":
		return model.NewInvalidEmojiError(fmt.Sprint(fe.Value()))
	case "text":
		if fe.Tag() == "max" {
			return model.NewTextTooLongError()
		}
	case "latitude", "longitude":
		return model.NewInvalidLocationError()
	}
	return model.NewValidationFailedError(fe.Field())
}
