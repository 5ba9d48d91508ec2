package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/file.pdf", "bucket", "file.pdf", false},
		{"gs://bucket/a/b/c.pdf", "bucket", "a/b/c.pdf", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"gs:///file.pdf", "", "", true},
		{"s3://bucket/file.pdf", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestResolve(t *testing.T) {
	uri, err := Resolve("gs://other/x.pdf", "statements")
	require.NoError(t, err)
	assert.Equal(t, "gs://other/x.pdf", uri)

	uri, err = Resolve(" uploads/x.pdf ", "statements")
	require.NoError(t, err)
	assert.Equal(t, "gs://statements/uploads/x.pdf", uri)

	_, err = Resolve("x.pdf", "")
	assert.Error(t, err)

	_, err = Resolve("  ", "statements")
	assert.Error(t, err)
}

func TestFilenameFromURI(t *testing.T) {
	assert.Equal(t, "file.pdf", FilenameFromURI("gs://bucket/folder/file.pdf"))
	assert.Equal(t, "bucket", FilenameFromURI("gs://bucket"))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "statements/may.pdf", ObjectName("statements/", "/home/me/may.pdf"))
	assert.Equal(t, "may.pdf", ObjectName("", `C:\docs\may.pdf`))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", contentType("x.PDF"))
	assert.Equal(t, "application/octet-stream", contentType("x.unknownext"))
}
