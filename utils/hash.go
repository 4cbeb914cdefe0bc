package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// BytesMD5 returns the hex MD5 digest of data. Used to key the render
// cache by upload content.
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}
