package rhizome

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
)

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	return err
}
