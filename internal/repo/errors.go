package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"sum-admin/internal/domain"
)

// translate 把 gorm/驱动错误映射到领域错误
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(what + " no encontrado")
	case isDupKey(err):
		return &domain.Error{Kind: domain.KindConflict, Msg: "Ya existe " + what, Err: err}
	}
	return domain.Store(what, err)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 未开启 TranslateError 的连接上兜底按文本判断
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
