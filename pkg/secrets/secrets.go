package secrets

import (
	"os"
	"strings"
	"sync"
)

var (
	once          sync.Once
	sensitiveMu   sync.RWMutex
	sensitiveEnvs []string

	envNameSensitivePatterns = []string{
		"API_KEY", "TOKEN", "SECRET", "PASSWORD", "ACCESS_CODE", "PRIVATE_KEY",
	}
)

func initSensitiveEnvs() {
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, val := parts[0], parts[1]
		up := strings.ToUpper(name)
		for _, pat := range envNameSensitivePatterns {
			if strings.Contains(up, pat) && val != "" {
				Register(val)
				break
			}
		}
	}
}

// Register adds a value that RedactString must hide.
func Register(val string) {
	if val == "" {
		return
	}
	sensitiveMu.Lock()
	defer sensitiveMu.Unlock()
	for _, v := range sensitiveEnvs {
		if v == val {
			return
		}
	}
	sensitiveEnvs = append(sensitiveEnvs, val)
}

func RedactString(s string) string {
	once.Do(initSensitiveEnvs)
	sensitiveMu.RLock()
	defer sensitiveMu.RUnlock()
	for _, val := range sensitiveEnvs {
		s = strings.ReplaceAll(s, val, "[HIDDEN]")
	}
	return s
}
