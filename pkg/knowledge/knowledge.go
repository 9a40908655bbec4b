// Package knowledge loads the read-only knowledge base that every prompt is
// grounded on. Sources are local JSON or YAML files, or S3 objects.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Base maps topic keys to arbitrary nested content. It is never nil once
// returned by Load.
type Base map[string]any

// Serialize renders the base as 2-space indented JSON for prompt embedding.
// An empty base renders as "{}".
func (b Base) Serialize() string {
	if len(b) == 0 {
		return "{}"
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(b)); err != nil {
		// Only reachable with values that came from neither JSON nor YAML.
		return fmt.Sprintf("%v", map[string]any(b))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Topics returns the number of top-level keys.
func (b Base) Topics() int { return len(b) }

// ObjectGetter is the subset of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader resolves a knowledge source into a Base.
type Loader struct {
	// S3 is required only for s3:// sources.
	S3     ObjectGetter
	Logger *logrus.Entry
}

// Load reads source once. A missing file or object yields an empty Base and
// a warning; a malformed document is an error.
func (l *Loader) Load(ctx context.Context, source string) (Base, error) {
	logger := l.Logger
	if logger == nil {
		logger = logrus.WithField("component", "knowledge")
	}

	if source == "" {
		logger.Warn("no knowledge source configured, using empty knowledge base")
		return Base{}, nil
	}

	var (
		data []byte
		err  error
	)
	if bucket, key, ok := parseS3URI(source); ok {
		data, err = l.fetchS3(ctx, bucket, key)
	} else {
		data, err = os.ReadFile(source)
		if errors.Is(err, os.ErrNotExist) {
			err = errMissing
		}
	}
	if errors.Is(err, errMissing) {
		logger.WithField("source", source).Warn("knowledge base not found, using empty knowledge base")
		return Base{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", source, err)
	}

	base, err := Parse(data, formatOf(source))
	if err != nil {
		return nil, fmt.Errorf("parse knowledge base %s: %w", source, err)
	}
	logger.WithFields(logrus.Fields{"source": source, "topics": base.Topics()}).Info("knowledge base loaded")
	return base, nil
}

var errMissing = errors.New("knowledge source missing")

func (l *Loader) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	if l.S3 == nil {
		return nil, fmt.Errorf("s3 source %s/%s but no S3 client configured", bucket, key)
	}
	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errMissing
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Format is the document syntax of a knowledge source.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func formatOf(source string) Format {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a knowledge document. The top level must be a mapping.
func Parse(data []byte, format Format) (Base, error) {
	base := Base{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return base, nil
	}

	var err error
	switch format {
	case FormatYAML:
		var raw map[string]any
		if err = yaml.Unmarshal(data, &raw); err == nil {
			for k, v := range raw {
				base[k] = normalizeYAML(v)
			}
		}
	default:
		err = json.Unmarshal(data, (*map[string]any)(&base))
	}
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = Base{}
	}
	return base, nil
}

// normalizeYAML converts non-string-keyed maps into map[string]any so the
// base always serializes as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func parseS3URI(source string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(source, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
