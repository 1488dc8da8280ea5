package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/DocTalk/internal/adapter"
	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/api"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

// multipart framing on top of the file itself
const formOverhead = 1 << 20

type Handler struct {
	service rag.Service
	logger  *logger_i.Logger
}

func NewHandler(service rag.Service) *Handler {
	return &Handler{
		service: service,
		logger:  logger_i.NewLogger("request_handler"),
	}
}

// HealthHandler godoc
// @Summary      Liveness check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// UploadHandler godoc
// @Summary      Upload a document
// @Description  Extracts the text of a PDF, DOCX, ODT, RTF, TXT or MD file, chunks and embeds it and publishes a vector index under a new document id.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "The document to index"
// @Success      200  {object}  api.UploadResponse
// @Failure      400  {object}  api.ErrorResponse  "No file, unsupported type or no extractable text"
// @Failure      500  {object}  api.ErrorResponse  "Embedding or index failure"
// @Router       /upload [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithContext(r.Context())
	log.Info("Received an upload request")

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		log.Warn("Bad upload request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer fileReader.Close()

	if fileMetadata.Filename == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "No file selected.")
		return
	}

	content, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}

	doc, err := h.service.IngestDocument(r.Context(), rag.IngestRequest{
		Filename: fileMetadata.Filename,
		Content:  content,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(doc))
}

// QnAHandler godoc
// @Summary      Ask a question about a document
// @Description  Answers from the document's most relevant passages, optionally fuses an image description, and returns lip-sync audio and visemes. Vision and speech failures degrade the response instead of failing it.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "Document id"
// @Param        request  body  api.QnARequest  true  "Question, optional base64 image and emotion"
// @Success      200  {object}  api.QnAResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing question or malformed body"
// @Failure      404  {object}  api.ErrorResponse  "Unknown document id"
// @Failure      500  {object}  api.ErrorResponse  "Embedding, index or answer failure"
// @Router       /qna/{id} [post]
func (h *Handler) QnAHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxQnABodyBytes)
	defer r.Body.Close()

	var requestData api.QnARequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		h.logger.WithContext(r.Context()).Warn("Bad QnA request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	query := commonModels.QueryContext{
		DocumentId:  id,
		Question:    requestData.Question,
		EmotionHint: requestData.Emotion,
	}
	if requestData.Image != "" {
		image, mimeType, err := vision.DecodeImage(requestData.Image)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		query.Image, query.ImageMimeType = image, mimeType
	}

	result, err := h.service.Answer(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToQnAResponse(result))
}

// UploadedDocsHandler godoc
// @Summary      List indexed documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.UploadedDocsResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /uploaded_docs [get]
func (h *Handler) UploadedDocsHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListDocuments(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadedDocsResponse(ids))
}

// AnalyzeImageHandler godoc
// @Summary      Describe an image and read its mood
// @Tags         Images
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true   "PNG, JPG, JPEG, WEBP, HEIC or HEIF image"
// @Param        prompt  formData  string  false  "What to ask about the image"
// @Success      200  {object}  api.AnalyzeImageResponse
// @Failure      400  {object}  api.ErrorResponse  "No image or unsupported file type"
// @Failure      500  {object}  api.ErrorResponse  "Vision model failure"
// @Router       /analyze-image [post]
func (h *Handler) AnalyzeImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxImageBytes+formOverhead)
	if err := r.ParseMultipartForm(config.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusBadRequest, "Image too large")
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "No image uploaded")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer fileReader.Close()

	image, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not read the uploaded image.")
		return
	}

	result, err := h.service.AnalyzeImage(r.Context(), rag.ImageRequest{
		Filename: fileMetadata.Filename,
		Image:    image,
		Prompt:   r.FormValue("prompt"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAnalyzeImageResponse(result, image))
}
