package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	apperrors "metatags-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

const (
	MaxDescriptionLength = 280
	DefaultLanguage      = "English"
)

// TagVariant meta 标签写法
type TagVariant string

const (
	TagVariantSelfClosing    TagVariant = "selfClosing"
	TagVariantNonSelfClosing TagVariant = "nonSelfClosing"

	// 旧版前端使用的拼写
	legacyNotSelfClosing = "notSelfClosing"
)

// UnmarshalJSON 兼容 notSelfClosing，空值取默认 nonSelfClosing
func (v *TagVariant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tagVariant must be a string: %w", err)
	}
	*v = ParseTagVariant(s)
	return nil
}

// ParseTagVariant 归一化输入，未知值原样保留交给校验
func ParseTagVariant(s string) TagVariant {
	switch strings.TrimSpace(s) {
	case "":
		return TagVariantNonSelfClosing
	case legacyNotSelfClosing, string(TagVariantNonSelfClosing):
		return TagVariantNonSelfClosing
	case string(TagVariantSelfClosing):
		return TagVariantSelfClosing
	default:
		return TagVariant(s)
	}
}

func (v TagVariant) SelfClosing() bool {
	return v == TagVariantSelfClosing
}

// GenerationRequest 一次生成的表单字段，发送后不再修改
type GenerationRequest struct {
	Description  string     `json:"description" validate:"required,max=280"`
	Language     string     `json:"language"`
	RobotsIndex  bool       `json:"robotsIndex"`
	RobotsFollow bool       `json:"robotsFollow"`
	TagVariant   TagVariant `json:"tagVariant" validate:"oneof=selfClosing nonSelfClosing"`
}

// WithDefaults 填充语言与标签写法的默认值
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	if r.TagVariant == "" {
		r.TagVariant = TagVariantNonSelfClosing
	}
	return r
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 校验字段约束，失败返回 BadRequest
func (r GenerationRequest) Validate() error {
	err := requestValidator().Struct(r.WithDefaults())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(err, apperrors.KindBadRequest, "invalid generation request")
	}

	fe := verrs[0]
	var msg string
	switch {
	case fe.Field() == "Description" && fe.Tag() == "required":
		msg = "Description is required"
	case fe.Field() == "Description" && fe.Tag() == "max":
		msg = "Description is too long"
	case fe.Field() == "TagVariant":
		msg = "Invalid tag variant"
	default:
		msg = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
	return apperrors.Wrap(err, apperrors.KindBadRequest, msg)
}
