package fixtures

import (
	"fmt"
	"math/rand"

	"github.com/docker/docker/pkg/namesgenerator"
	"github.com/google/uuid"
)

func GetRandomName(retry int) string {
	return fmt.Sprint(namesgenerator.GetRandomName(retry), "_", uuid.NewString()[:8])
}

func GenerateString() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	result := make([]byte, 10)
	for i := range result {
		result[i] = chars[rand.Intn(len(chars))]
	}
	return string(result)
}
