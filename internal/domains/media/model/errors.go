package model

import "errors"

var (
	ErrMediaNotFound     = errors.New("media not found")
	ErrProcessedNotFound = errors.New("processing record not found")
	ErrUnsupportedType   = errors.New("media type is not processed by this pipeline")
	ErrProductNotFound   = errors.New("product not found")
	ErrNotProductOwner   = errors.New("media can only be registered by the product's seller")
)
