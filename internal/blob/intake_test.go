package blob

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	name := GenerateName("My App (v2).APK", now)
	assert.Regexp(t, regexp.MustCompile(`^1700000000123-[0-9a-f]{13}\.apk$`), name)

	other := GenerateName("My App (v2).APK", now)
	assert.NotEqual(t, name, other)

	assert.Regexp(t, `^\d+-[0-9a-f]{13}$`, GenerateName("noext", now))
	assert.Regexp(t, `\.png$`, GenerateName("../../etc/икона.png", now))
}

func TestValidate(t *testing.T) {
	in := NewIntake(NewMemoryStore(), 1024)

	cases := []struct {
		name string
		kind Kind
		file testFile
		want error
	}{
		{"apk ok", KindAPK, testFile{field: "apk", filename: "App.APK", body: []byte("x")}, nil},
		{"exe rejected", KindAPK, testFile{field: "apk", filename: "virus.exe", body: []byte("x")}, ErrUnsupportedType},
		{"apk too large", KindAPK, testFile{field: "apk", filename: "big.apk", body: make([]byte, 2048)}, ErrTooLarge},
		{"png icon", KindIcon, testFile{field: "icon", filename: "i.png", contentType: "image/png", body: pngBytes}, nil},
		{"webp icon", KindIcon, testFile{field: "icon", filename: "i.webp", contentType: "image/webp", body: []byte("x")}, nil},
		{"svg rejected", KindIcon, testFile{field: "icon", filename: "i.svg", contentType: "image/svg+xml", body: []byte("<svg/>")}, ErrUnsupportedType},
		{"sniffed png", KindIcon, testFile{field: "icon", filename: "i.bin", contentType: "application/octet-stream", body: pngBytes}, nil},
		{"sniffed text", KindIcon, testFile{field: "icon", filename: "i.bin", contentType: "application/octet-stream", body: []byte("hello")}, ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := in.Validate(tc.kind, fileHeader(t, tc.file))
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	in := NewIntake(NewMemoryStore(), 1<<20)

	files, err := in.Collect(multipartFiles(t,
		testFile{field: "apk", filename: "a.apk", body: []byte("a")},
		testFile{field: "icon", filename: "i.png", contentType: "image/png", body: pngBytes},
	))
	require.NoError(t, err)
	require.NotNil(t, files.APK)
	require.NotNil(t, files.Icon)
	assert.Equal(t, "a.apk", files.APK.Filename)

	_, err = in.Collect(multipartFiles(t,
		testFile{field: "apk", filename: "a.apk", body: []byte("a")},
		testFile{field: "apk", filename: "b.apk", body: []byte("b")},
	))
	assert.ErrorIs(t, err, ErrTooManyFiles)

	_, err = in.Collect(multipartFiles(t,
		testFile{field: "avatar", filename: "a.png", contentType: "image/png", body: pngBytes},
	))
	assert.ErrorIs(t, err, ErrUnexpectedFile)

	_, err = in.Collect(multipartFiles(t,
		testFile{field: "apk", filename: "a.exe", body: []byte("a")},
	))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	files, err = in.Collect(nil)
	require.NoError(t, err)
	assert.Nil(t, files.APK)
}

func TestStorePersists(t *testing.T) {
	mem := NewMemoryStore()
	in := NewIntake(mem, 1<<20)
	in.now = func() time.Time { return time.UnixMilli(42) }
	ctx := context.Background()

	stored, err := in.Store(ctx, KindAPK, fileHeader(t, testFile{field: "apk", filename: "Tele gram.apk", body: []byte("apk-bytes")}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Name, "42-"))
	assert.Equal(t, "Tele gram.apk", stored.OriginalName)
	assert.Equal(t, int64(9), stored.Size)

	ok, err := mem.Exists(ctx, KindAPK, stored.Name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreRejectedLeavesNothing(t *testing.T) {
	mem := NewMemoryStore()
	in := NewIntake(mem, 1<<20)

	_, err := in.Store(context.Background(), KindAPK, fileHeader(t, testFile{field: "apk", filename: "setup.exe", body: []byte("MZ")}))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, mem.Len(KindAPK))
}

func TestStoreFiles(t *testing.T) {
	mem := NewMemoryStore()
	in := NewIntake(mem, 1<<20)
	files, err := in.Collect(multipartFiles(t,
		testFile{field: "apk", filename: "a.apk", body: []byte("a")},
		testFile{field: "icon", filename: "i.png", contentType: "image/png", body: pngBytes},
	))
	require.NoError(t, err)

	apk, icon, err := in.StoreFiles(context.Background(), files)
	require.NoError(t, err)
	require.NotNil(t, apk)
	require.NotNil(t, icon)
	assert.Equal(t, 1, mem.Len(KindAPK))
	assert.Equal(t, 1, mem.Len(KindIcon))

	apk, icon, err = in.StoreFiles(context.Background(), Files{})
	require.NoError(t, err)
	assert.Nil(t, apk)
	assert.Nil(t, icon)
}
