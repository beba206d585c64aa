package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

type RegisterMediaRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Type      string    `json:"type"`
	SourceURL string    `json:"source_url"`
}

func (req RegisterMediaRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Type, validation.Required, validation.In(MediaTypeImage, MediaTypeVideo)),
		validation.Field(&req.SourceURL, validation.Required, is.URL),
	)
}

type MediaStatusResponse struct {
	Media     *ProductMedia   `json:"media"`
	Processed *ProcessedMedia `json:"processed"`
}
