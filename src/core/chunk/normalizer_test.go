package chunk

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"testing"

	"morphik-gateway-go/src/core/image"
	"morphik-gateway-go/src/core/storage"
	"morphik-gateway-go/src/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, req storage.UploadRequest) (*storage.UploadedAsset, error) {
	args := m.Called(ctx, req)
	if asset, ok := args.Get(0).(*storage.UploadedAsset); ok {
		return asset, args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeSource struct {
	content Content
	fields  []Field
}

func (f fakeSource) Content() Content { return f.content }
func (f fakeSource) Fields() []Field  { return f.fields }

func text(s string, fields ...Field) Source {
	return fakeSource{content: RawText{Text: s}, fields: fields}
}

func dataURL(s string, fields ...Field) Source {
	return fakeSource{content: DataURLString{URL: s}, fields: fields}
}

func newTestNormalizer(up storage.Uploader) *Normalizer {
	n := NewNormalizer(up, image.NewInspector(nil), "morphik", utils.NewDiscardLogger())
	n.newID = func() string { return "fixed-id" }
	return n
}

func TestNormalize_TextChunk(t *testing.T) {
	up := &mockUploader{}
	n := newTestNormalizer(up)

	images, texts := n.Normalize(context.Background(), []Source{
		text("hello world", Field{Name: "score", Value: 0.5}, Field{Name: "document_id", Value: "doc-1"}),
	}, "u1")

	assert.Empty(t, images)
	require.Len(t, texts, 1)
	assert.Equal(t, "hello world", texts[0][KeyContent])
	assert.Equal(t, ContentTypeText, texts[0][KeyContentType])
	assert.Equal(t, 0.5, texts[0]["score"])
	assert.Equal(t, "doc-1", texts[0]["document_id"])
	_, hasURL := texts[0][KeyImageURL]
	assert.False(t, hasURL)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestNormalize_UploadSuccess(t *testing.T) {
	up := &mockUploader{}
	secure := "https://res.cloudinary.com/demo/image/upload/morphik/u1/fixed-id.png"
	up.On("Upload", mock.Anything, mock.MatchedBy(func(req storage.UploadRequest) bool {
		return req.Folder == "morphik/u1" &&
			req.PublicID == "fixed-id" &&
			req.MIMEType == "image/png" &&
			string(req.Data) == "\x00\x00\x00"
	})).Return(&storage.UploadedAsset{SecureURL: secure, PublicID: "morphik/u1/fixed-id"}, nil).Once()

	n := newTestNormalizer(up)
	images, texts := n.Normalize(context.Background(), []Source{
		dataURL("data:image/png;base64,AAAA", Field{Name: "content_type", Value: "image/png"}),
	}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, secure, images[0][KeyContent])
	assert.Equal(t, secure, images[0][KeyImageURL])
	assert.Equal(t, ContentTypeImage, images[0][KeyContentType])
	up.AssertExpectations(t)
}

func TestNormalize_UploadFailureKeepsBase64(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("cloud down")).Once()

	n := newTestNormalizer(up)
	original := "data:image/png;base64,AAAA"
	images, texts := n.Normalize(context.Background(), []Source{dataURL(original)}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, original, images[0][KeyContent])
	assert.Equal(t, ContentTypeImage, images[0][KeyContentType])
	_, hasURL := images[0][KeyImageURL]
	assert.False(t, hasURL)
	up.AssertExpectations(t)
}

func TestNormalize_GarbledDataURLIsPreserved(t *testing.T) {
	up := &mockUploader{}
	n := newTestNormalizer(up)

	// claims to be an image but never matches the mime/base64 pattern
	garbled := "data:image;base64,"
	images, texts := n.Normalize(context.Background(), []Source{dataURL(garbled)}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, garbled, images[0][KeyContent])
	assert.Equal(t, ContentTypeImage, images[0][KeyContentType])
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestNormalize_StringFormWithoutImagePrefixIsText(t *testing.T) {
	up := &mockUploader{}
	n := newTestNormalizer(up)

	images, texts := n.Normalize(context.Background(), []Source{
		dataURL("data:garbled-without-base64-marker"),
	}, "u1")

	assert.Empty(t, images)
	require.Len(t, texts, 1)
	assert.Equal(t, "data:garbled-without-base64-marker", texts[0][KeyContent])
}

func TestNormalize_EncodedMediaKeptVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bare base64", base64.StdEncoding.EncodeToString([]byte("not a data url"))},
		{"garbled data url", "data:garbled-without-base64-marker"},
		{"mime without base64 marker", "data:image/png,AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUploader{}
			n := newTestNormalizer(up)

			images, texts := n.Normalize(context.Background(), []Source{
				fakeSource{content: EncodedMedia{Payload: tt.payload}},
			}, "u1")

			assert.Empty(t, texts)
			require.Len(t, images, 1)
			assert.Equal(t, tt.payload, images[0][KeyContent])
			assert.Equal(t, ContentTypeImage, images[0][KeyContentType])
			_, hasURL := images[0][KeyImageURL]
			assert.False(t, hasURL)
			up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}
}

func TestNormalize_EncodedMediaDataURLIsUploaded(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.MatchedBy(func(req storage.UploadRequest) bool {
		return req.MIMEType == "image/png" && req.Folder == "morphik/u1"
	})).Return(&storage.UploadedAsset{SecureURL: "https://cdn/z.png"}, nil).Once()

	n := newTestNormalizer(up)
	images, texts := n.Normalize(context.Background(), []Source{
		fakeSource{content: EncodedMedia{Payload: "data:image/png;base64,AAAA"}},
	}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn/z.png", images[0][KeyContent])
	up.AssertExpectations(t)
}

func TestNormalize_EmptyEncodedMediaIsText(t *testing.T) {
	n := newTestNormalizer(&mockUploader{})
	images, texts := n.Normalize(context.Background(), []Source{
		fakeSource{content: EncodedMedia{}},
	}, "u1")

	assert.Empty(t, images)
	require.Len(t, texts, 1)
	assert.Equal(t, "", texts[0][KeyContent])
}

func TestNormalize_UndecodablePayloadSkipsUpload(t *testing.T) {
	up := &mockUploader{}
	n := newTestNormalizer(up)

	bad := "data:image/png;base64,***"
	images, _ := n.Normalize(context.Background(), []Source{dataURL(bad)}, "u1")

	require.Len(t, images, 1)
	assert.Equal(t, bad, images[0][KeyContent])
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestNormalize_StructuredMedia(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.MatchedBy(func(req storage.UploadRequest) bool {
		return req.MIMEType == "image/jpeg" && string(req.Data) == "jpegbytes"
	})).Return(&storage.UploadedAsset{SecureURL: "https://cdn/x.jpg"}, nil).Once()

	n := newTestNormalizer(up)
	images, texts := n.Normalize(context.Background(), []Source{
		fakeSource{content: StructuredMedia{Data: []byte("jpegbytes"), MIMEType: "image/jpeg"}},
	}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn/x.jpg", images[0][KeyImageURL])
	up.AssertExpectations(t)
}

func TestNormalize_StructuredMediaAccessorFailureFallsThrough(t *testing.T) {
	up := &mockUploader{}
	n := newTestNormalizer(up)

	images, texts := n.Normalize(context.Background(), []Source{
		fakeSource{content: StructuredMedia{MIMEType: "image/png"}},
	}, "u1")

	assert.Empty(t, images)
	require.Len(t, texts, 1)
	assert.Equal(t, "<media image/png, 0 bytes>", texts[0][KeyContent])
}

func TestNormalize_RawTextThatIsADataURL(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.Anything).Return(&storage.UploadedAsset{SecureURL: "https://cdn/y.png"}, nil).Once()

	n := newTestNormalizer(up)
	images, texts := n.Normalize(context.Background(), []Source{
		text("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))),
	}, "u1")

	assert.Empty(t, texts)
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn/y.png", images[0][KeyContent])
}

func TestNormalize_PartitionIsTotalAndOrdered(t *testing.T) {
	up := &mockUploader{}
	up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("offline"))

	n := newTestNormalizer(up)
	input := []Source{
		text("t0", Field{Name: "chunk_number", Value: 0}),
		dataURL("data:image/png;base64,AAAA", Field{Name: "chunk_number", Value: 1}),
		text("t2", Field{Name: "chunk_number", Value: 2}),
		dataURL("data:image/gif;base64,R0lG", Field{Name: "chunk_number", Value: 3}),
		text("t4", Field{Name: "chunk_number", Value: 4}),
		fakeSource{content: nil, fields: []Field{{Name: "chunk_number", Value: 5}}},
	}

	images, texts := n.Normalize(context.Background(), input, "u1")
	assert.Equal(t, len(input), len(images)+len(texts))

	var imageOrder, textOrder []interface{}
	for _, c := range images {
		imageOrder = append(imageOrder, c["chunk_number"])
	}
	for _, c := range texts {
		textOrder = append(textOrder, c["chunk_number"])
	}
	assert.Equal(t, []interface{}{1, 3}, imageOrder)
	assert.Equal(t, []interface{}{0, 2, 4, 5}, textOrder)
}

func TestNormalize_EmptyInputGivesEmptyBuckets(t *testing.T) {
	n := newTestNormalizer(&mockUploader{})
	images, texts := n.Normalize(context.Background(), nil, "u1")
	assert.NotNil(t, images)
	assert.NotNil(t, texts)
	assert.Empty(t, images)
	assert.Empty(t, texts)
}

func TestNormalize_FieldCoercion(t *testing.T) {
	n := newTestNormalizer(&mockUploader{})
	name := "report.pdf"
	var missing *string

	images, texts := n.Normalize(context.Background(), []Source{
		text("body",
			Field{Name: "metadata", Value: map[string]interface{}{"page": 2}},
			Field{Name: "filename", Value: &name},
			Field{Name: "download_url", Value: missing},
			Field{Name: "score", Value: math.NaN()},
			Field{Name: "broken", Value: map[string]interface{}{"bad": math.Inf(1)}},
			Field{Name: "content", Value: "ignored, content is handled separately"},
		),
	}, "u1")

	assert.Empty(t, images)
	require.Len(t, texts, 1)
	c := texts[0]
	assert.Equal(t, `{"page":2}`, c["metadata"])
	assert.Equal(t, "report.pdf", c["filename"])
	v, ok := c["download_url"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "NaN", c["score"])
	assert.Equal(t, "body", c[KeyContent])

	// a field that cannot be serialized is dropped, the chunk survives
	_, ok = c["broken"]
	assert.False(t, ok)
}

func TestToScalar(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected interface{}
	}{
		{"string", "a", "a"},
		{"int", 3, 3},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"nil", nil, nil},
		{"slice", []interface{}{"a", 1}, `["a",1]`},
		{"string slice", []string{"x"}, `["x"]`},
		{"error", errors.New("e"), "e"},
		{"stringer", RawText{Text: "via stringer"}, "via stringer"},
		{"struct", struct{ A int }{A: 1}, "{1}"},
		{"inf", math.Inf(-1), "-Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toScalar(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
