package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// PublicConfig is the subset of the config that clients need to know about,
// e.g. to show the due date before a loan is created.
type PublicConfig struct {
	BorrowingLimitDays int `json:"borrowing_limit_days"`
}

type handler struct {
	config *Config
}

func (h *handler) retrieve(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, PublicConfig{
		BorrowingLimitDays: h.config.BorrowingLimitDays,
	}))
}
