package util

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
)

// MD5ToHexdigest computes MD5 for given string and returns hex, used for naming only
func MD5ToHexdigest(content string) string {
	hash := md5.Sum([]byte(content)) //nolint:gosec
	return hex.EncodeToString(hash[:])
}
