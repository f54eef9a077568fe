package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"docvault/docs"
	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func svcErr(kind service.Kind, msg string) error {
	return &service.Error{Kind: kind, Op: "test", Message: msg}
}

// uploadForm builds a multipart body with a pdf part and owner fields.
func uploadForm(t *testing.T, fileField, fileName, partType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
	h.Set("Content-Type", partType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7\nhello"))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/api/pdfs", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		docs := []model.DocumentRecord{
			{ID: uuid.NewString(), DisplayFileName: "b.pdf"},
			{ID: uuid.NewString(), DisplayFileName: "a.pdf"},
		}
		mockSvc.On("ListAll", mock.Anything).Return(docs, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result []model.DocumentRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		require.Len(t, result, 2)
		assert.Equal(t, "b.pdf", result[0].DisplayFileName)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty list renders as array", func(t *testing.T) {
		mockSvc.On("ListAll", mock.Anything).Return([]model.DocumentRecord{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, "[]", string(raw))
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListAll", mock.Anything).Return(nil, svcErr(service.KindMetadataRead, "list documents")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "METADATA_READ_ERROR", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("request_id", "rid-1")
		return c.Next()
	})
	app.Post("/api/pdfs/upload", UploadDocument(mockSvc))

	owner := map[string]string{"userName": "Alice", "userEmail": "alice@example.com"}

	t.Run("success", func(t *testing.T) {
		body, ct := uploadForm(t, "pdf", "report.pdf", "application/pdf", owner)

		expected := &model.DocumentRecord{ID: uuid.NewString(), DisplayFileName: "report.pdf"}
		mockSvc.On("Commit", mock.Anything, mock.MatchedBy(func(in service.CommitInput) bool {
			return in.Body != nil &&
				in.ContentType == "application/pdf" &&
				in.OwnerName == "Alice" &&
				in.OwnerEmail == "alice@example.com" &&
				in.DisplayFileName == "report.pdf"
		})).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result uploadResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "PDF uploaded successfully", result.Message)
		require.NotNil(t, result.Document)
		assert.Equal(t, expected.ID, result.Document.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp.Body)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
		assert.Equal(t, "rid-1", res.RequestID)
	})

	t.Run("file under wrong field", func(t *testing.T) {
		body, ct := uploadForm(t, "file", "report.pdf", "application/pdf", owner)
		req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		body, ct := uploadForm(t, "pdf", "image.png", "image/png", owner)
		mockSvc.On("Commit", mock.Anything, mock.MatchedBy(func(in service.CommitInput) bool {
			return in.ContentType == "image/png"
		})).Return(nil, svcErr(service.KindValidation, "content type must be application/pdf")).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp.Body)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		assert.Equal(t, "content type must be application/pdf", res.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("store errors do not leak details", func(t *testing.T) {
		cases := map[service.Kind]string{
			service.KindStorageWrite:  "STORAGE_WRITE_ERROR",
			service.KindMetadataWrite: "METADATA_WRITE_ERROR",
		}
		for kind, code := range cases {
			body, ct := uploadForm(t, "pdf", "report.pdf", "application/pdf", owner)
			mockSvc.On("Commit", mock.Anything, mock.Anything).
				Return(nil, &service.Error{Kind: kind, Op: "commit", Message: "x", Err: errors.New("secret dsn")}).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/pdfs/upload", body)
			req.Header.Set("Content-Type", ct)
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			raw, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(raw), code)
			assert.NotContains(t, string(raw), "secret dsn")
		}
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/api/pdfs/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(&model.DocumentRecord{ID: id}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result model.DocumentRecord
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "missing").Return(nil, svcErr(service.KindNotFound, "document not found")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/missing", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unclassified error", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "boom").Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp.Body).Error.Code)
	})
}

func TestViewDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/api/pdfs/view/:id", ViewDocument(mockSvc))

	expires := time.Date(2024, 5, 1, 12, 5, 0, 0, time.UTC)

	t.Run("default ttl", func(t *testing.T) {
		mockSvc.On("IssueViewURL", mock.Anything, "doc-1", time.Duration(0)).
			Return(&service.SignedURL{URL: "https://signed", ExpiresAt: expires}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/view/doc-1", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result service.SignedURL
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "https://signed", result.URL)
		assert.True(t, expires.Equal(result.ExpiresAt))
		mockSvc.AssertExpectations(t)
	})

	t.Run("explicit ttl", func(t *testing.T) {
		mockSvc.On("IssueViewURL", mock.Anything, "doc-1", 60*time.Second).
			Return(&service.SignedURL{URL: "https://signed", ExpiresAt: expires}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/view/doc-1?ttl=60", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	for _, raw := range []string{"abc", "-5", "1.5"} {
		t.Run("invalid ttl "+raw, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/view/doc-1?ttl="+raw, nil))

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_TTL", decodeError(t, resp.Body).Error.Code)
		})
	}

	errCases := []struct {
		kind   service.Kind
		status int
		code   string
	}{
		{service.KindValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{service.KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{service.KindBlobMissing, http.StatusInternalServerError, "BLOB_MISSING"},
		{service.KindSigning, http.StatusInternalServerError, "SIGNING_ERROR"},
	}
	for _, tc := range errCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			mockSvc.On("IssueViewURL", mock.Anything, "doc-2", time.Duration(0)).
				Return(nil, svcErr(tc.kind, "x")).Once()

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/view/doc-2", nil))

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp.Body).Error.Code)
		})
	}
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDocumentService)
	// Register all routes
	RegisterRoutes(app, nil, mockSvc)

	t.Run("list is mounted", func(t *testing.T) {
		mockSvc.On("ListAll", mock.Anything).Return([]model.DocumentRecord{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("view route wins over id route", func(t *testing.T) {
		mockSvc.On("IssueViewURL", mock.Anything, "abc", time.Duration(0)).
			Return(&service.SignedURL{URL: "https://signed"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/pdfs/view/abc", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("swagger doc uses relative host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
		req.Host = "attacker.example"

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), `"/api/pdfs/upload"`)
		assert.NotContains(t, string(body), "attacker.example")
		assert.Empty(t, docs.SwaggerInfo.Host)
	})

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		// Fiber returns 405 if route exists but method doesn't match
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("payload too large", func(t *testing.T) {
		limited := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
		limited.Get("/too-large", func(c *fiber.Ctx) error { return fiber.ErrRequestEntityTooLarge })

		resp, _ := limited.Test(httptest.NewRequest(http.MethodGet, "/too-large", nil))

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeError(t, resp.Body).Error.Code)
	})
}
