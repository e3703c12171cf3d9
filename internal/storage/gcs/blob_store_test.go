package gcs

import (
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "pages"})
	require.ErrorContains(t, err, "storage client is required")

	_, err = New(&storage.Client{}, Config{Bucket: "  "})
	require.ErrorContains(t, err, "bucket name is required")
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "pages/ab12.html", want: "pages/ab12.html"},
		{key: "/pages//ab12.html", want: "pages/ab12.html"},
		{key: "../../etc/ab12.html", want: "etc/ab12.html"},
		{key: " ", wantErr: true},
		{key: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			got, err := objectName(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestApplyAttrs(t *testing.T) {
	t.Parallel()

	var attrs storage.ObjectAttrs
	applyAttrs(&attrs, "pages/ab12.html", "", true)
	require.Equal(t, DefaultContentType, attrs.ContentType)
	require.Equal(t, "gzip", attrs.ContentEncoding)
	require.Equal(t, "ab12.html", attrs.Metadata["archive-key"])

	attrs = storage.ObjectAttrs{}
	applyAttrs(&attrs, "ab12.html", "text/plain", false)
	require.Equal(t, "text/plain", attrs.ContentType)
	require.Empty(t, attrs.ContentEncoding)
}
