package model

import (
	"time"

	"github.com/google/uuid"
)

// newID 生成时间有序的 UUIDv7 主键
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Now 返回入库使用的当前时间（UTC，毫秒精度）
// MySQL datetime(3) 只保留毫秒，统一截断以保证各驱动读写一致
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
