// Package gormstore implements the repositories on MySQL through gorm.
package gormstore

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/precast_backend/utils"
	"gorm.io/gorm"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// notFound maps gorm.ErrRecordNotFound onto *utils.NotFoundError.
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(resource, id)
	}
	return err
}

// duplicate maps a unique index violation onto *utils.ConflictError.
func duplicate(err error, resource, field, value string) error {
	if err != nil && isDuplicateKeyErr(err) {
		return utils.NewConflictError(resource, field, value)
	}
	return err
}

// highestNumber returns the largest number in column starting with prefix.
// Longer numbers sort first so 10000 beats 9999.
func highestNumber(db *gorm.DB, model any, column, prefix string) (string, error) {
	var numbers []string
	err := db.Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Order("LENGTH(" + column + ") DESC").
		Order(column + " DESC").
		Limit(5).
		Pluck(column, &numbers).Error
	if err != nil {
		return "", err
	}
	return utils.HighestSequence(numbers, prefix), nil
}

func likePattern(search string) string {
	return "%" + search + "%"
}
