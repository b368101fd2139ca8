package handlers

import (
	"telegram_rewards/internal/ton"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs custom binding tags on gin's validator engine.
//
//	tonaddr  raw (wc:hex) or user-friendly base64 TON address
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("tonaddr", func(fl validator.FieldLevel) bool {
		return ton.ValidateAddress(fl.Field().String())
	})
}
