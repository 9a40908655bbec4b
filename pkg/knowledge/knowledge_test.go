package knowledge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(getter ObjectGetter) *Loader {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Loader{S3: getter, Logger: logger.WithField("test", "knowledge")}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "kb.json", `{"library": {"hours": "9am-9pm", "floors": [1, 2]}}`)

	base, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, base.Topics())
	lib := base["library"].(map[string]any)
	assert.Equal(t, "9am-9pm", lib["hours"])
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "kb.yaml", "admissions:\n  deadline: March 31\n  fees:\n    - 1000\n    - 2000\n")

	base, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, base.Serialize(), `"deadline": "March 31"`)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	base, err := testLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.Equal(t, 0, base.Topics())
	assert.Equal(t, "{}", base.Serialize())
}

func TestLoadEmptySource(t *testing.T) {
	base, err := testLoader(nil).Load(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, base)
}

func TestLoadMalformed(t *testing.T) {
	path := writeFile(t, "kb.json", `{"library": `)
	_, err := testLoader(nil).Load(context.Background(), path)
	assert.Error(t, err)
}

func TestParseNullIsEmpty(t *testing.T) {
	base, err := Parse([]byte("null"), FormatJSON)
	require.NoError(t, err)
	assert.NotNil(t, base)
}

func TestSerializeIndented(t *testing.T) {
	base := Base{"a": map[string]any{"b": "c"}}
	assert.Equal(t, "{\n  \"a\": {\n    \"b\": \"c\"\n  }\n}", base.Serialize())
}

func TestSerializeKeepsMarkup(t *testing.T) {
	base := Base{"fees": "<b>Tuition & hostel</b> > 50000"}
	out := base.Serialize()
	assert.Contains(t, out, `"<b>Tuition & hostel</b> > 50000"`)
	assert.NotContains(t, out, `\u003c`)
	assert.NotContains(t, out, `\u0026`)
}

type fakeGetter struct {
	body string
	err  error
	in   *s3.GetObjectInput
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestLoadS3(t *testing.T) {
	getter := &fakeGetter{body: "hostel:\n  curfew: 10pm\n"}

	base, err := testLoader(getter).Load(context.Background(), "s3://campus-kb/prod/kb.yml")
	require.NoError(t, err)
	assert.Equal(t, "campus-kb", aws.ToString(getter.in.Bucket))
	assert.Equal(t, "prod/kb.yml", aws.ToString(getter.in.Key))
	assert.Equal(t, 1, base.Topics())
}

func TestLoadS3NoSuchKeyIsEmpty(t *testing.T) {
	getter := &fakeGetter{err: &types.NoSuchKey{}}

	base, err := testLoader(getter).Load(context.Background(), "s3://campus-kb/kb.json")
	require.NoError(t, err)
	assert.Equal(t, 0, base.Topics())
}

func TestLoadS3Error(t *testing.T) {
	getter := &fakeGetter{err: errors.New("access denied")}

	_, err := testLoader(getter).Load(context.Background(), "s3://campus-kb/kb.json")
	assert.ErrorContains(t, err, "access denied")
}

func TestLoadS3WithoutClient(t *testing.T) {
	_, err := testLoader(nil).Load(context.Background(), "s3://campus-kb/kb.json")
	assert.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		ok          bool
	}{
		{"s3://b/k.json", "b", "k.json", true},
		{"s3://b/dir/k.json", "b", "dir/k.json", true},
		{"s3://b", "", "", false},
		{"s3:///k", "", "", false},
		{"kb.json", "", "", false},
	}
	for _, tt := range tests {
		b, k, ok := parseS3URI(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.bucket, b, tt.in)
		assert.Equal(t, tt.key, k, tt.in)
	}
	assert.True(t, NeedsS3("s3://b/k"))
}
