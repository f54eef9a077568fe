package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

const pdfFormField = "pdf"

// uploadResponse is the body of a successful upload.
type uploadResponse struct {
	Message  string                `json:"message"`
	Document *model.DocumentRecord `json:"document"`
}

// ListDocuments godoc
// @Summary      List documents
// @Description  Returns every document record, newest first.
// @Tags         pdfs
// @Produce      json
// @Success      200  {array}   model.DocumentRecord
// @Failure      500  {object}  errorPayload
// @Router       /api/pdfs [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListAll(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// UploadDocument godoc
// @Summary      Upload a PDF
// @Description  Stores the file, then records its metadata. The file is private; use the view endpoint to read it.
// @Tags         pdfs
// @Accept       multipart/form-data
// @Produce      json
// @Param        pdf        formData  file    true  "PDF file"
// @Param        userName   formData  string  true  "Owner name"
// @Param        userEmail  formData  string  true  "Owner email"
// @Success      201  {object}  uploadResponse
// @Failure      400  {object}  errorPayload
// @Failure      413  {object}  errorPayload
// @Failure      500  {object}  errorPayload
// @Router       /api/pdfs/upload [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(pdfFormField)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "pdf file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Commit(c.UserContext(), service.CommitInput{
			Body:            f,
			ContentType:     fh.Header.Get(fiber.HeaderContentType),
			OwnerName:       c.FormValue("userName"),
			OwnerEmail:      c.FormValue("userEmail"),
			DisplayFileName: fh.Filename,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Message:  "PDF uploaded successfully",
			Document: doc,
		})
	}
}

// GetDocument godoc
// @Summary  Get a document record
// @Tags     pdfs
// @Produce  json
// @Param    id   path      string  true  "Document ID"
// @Success  200  {object}  model.DocumentRecord
// @Failure  404  {object}  errorPayload
// @Failure  500  {object}  errorPayload
// @Router   /api/pdfs/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ViewDocument godoc
// @Summary      Issue a view URL
// @Description  Returns a pre-signed, read-only URL for the document. Omitting ttl uses the server default.
// @Tags         pdfs
// @Produce      json
// @Param        id   path      string  true   "Document ID"
// @Param        ttl  query     int     false  "URL lifetime in seconds"
// @Success      200  {object}  service.SignedURL
// @Failure      400  {object}  errorPayload
// @Failure      404  {object}  errorPayload
// @Failure      500  {object}  errorPayload
// @Router       /api/pdfs/view/{id} [get]
func ViewDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ttl time.Duration
		if raw := c.Query("ttl"); raw != "" {
			secs, err := strconv.Atoi(raw)
			if err != nil || secs < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_TTL", "ttl must be a non-negative number of seconds")
			}
			ttl = time.Duration(secs) * time.Second
		}

		signed, err := svc.IssueViewURL(c.UserContext(), c.Params("id"), ttl)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(signed)
	}
}
