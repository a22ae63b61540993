package hash

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Fingerprint 计算集群连接凭据的指纹
// 指纹由 (username, password, hostname, port) 唯一确定，凭据变更后必须重新计算
func Fingerprint(username, password, hostname string, port int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s%s%s%d", username, password, hostname, port)))
	return hex.EncodeToString(sum[:])
}
