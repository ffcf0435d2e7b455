package seeds

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var envRe = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// Load reads the seed list at path. A missing file means no seeds.
func Load(path string, logger *zap.Logger) (File, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("seeds_file_missing", zap.String("file", path))
		return File{}, nil
	}
	if err != nil {
		return File{}, err
	}
	b = envRe.ReplaceAllFunc(b, func(m []byte) []byte {
		k := string(envRe.FindSubmatch(m)[1])
		val := os.Getenv(k)
		if val == "" {
			logger.Warn("env variable is empty during config expansion",
				zap.String("file", path),
				zap.String("var", k))
		}
		return []byte(val)
	})

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	out := f.Servers[:0]
	for _, s := range f.Servers {
		s.Host = strings.TrimSpace(s.Host)
		if s.Host == "" {
			continue
		}
		out = append(out, s)
	}
	f.Servers = out
	return f, nil
}
