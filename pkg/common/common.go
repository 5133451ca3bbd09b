package common

import (
	"crypto/sha256"
	"fmt"
	"math"
	"os"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a new snowflake int64 identifier.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a new snowflake identifier in base58 string form.
func UUID() string {
	return snowflakeNode.Generate().Base58()
}

func GetSecretSalt() string {
	salt := os.Getenv("CAISSE_SECRET_SALT")
	if salt == "" {
		salt = "caisse-secret"
	}
	return salt
}

func Sha256HashWithSalt(src string, salt string) string {
	h := sha256.New()
	h.Write([]byte(src))
	h.Write([]byte(salt))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RoundCurrency rounds v to 3 decimal places, the millime precision used
// for all prices and totals.
func RoundCurrency(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
