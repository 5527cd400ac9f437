package claim

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/handler"
	"github.com/medifast/claims-api/internal/middleware"
	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/service/claim"
	"github.com/medifast/claims-api/internal/service/extraction"
)

// maxUploadSize caps individual claim documents at 10MB.
const maxUploadSize = 10 << 20

var allowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

type Handler struct {
	svc       *claim.Service
	extractor *extraction.Service
}

func NewHandler(svc *claim.Service, extractor *extraction.Service) *Handler {
	return &Handler{svc: svc, extractor: extractor}
}

// RegisterRoutes mounts the claim surface on an authenticated group.
// Patients submit and attach documents; review operations are
// staff-gated here and role-checked again inside the lifecycle engine.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.AuthMiddleware) {
	claims := r.Group("/claims")
	{
		claims.POST("/upload-document", authn.RequireRoles(model.RolePatient), h.UploadDocument)
		claims.POST("", authn.RequireRoles(model.RolePatient), h.CreateClaim)
		claims.GET("", h.ListClaims)
		claims.GET("/:id", h.GetClaim)
		claims.GET("/number/:number", h.GetClaimByNumber)
		claims.POST("/:id/documents", h.AppendDocument)
		claims.POST("/:id/status", authn.RequireStaff(), h.UpdateStatus)
		claims.PATCH("/:id/data", authn.RequireStaff(), h.UpdateExtractedData)
		claims.PUT("/:id/assign", authn.RequireRoles(model.RoleAdmin), h.AssignClaim)
	}
}

// UploadDocument validates an uploaded file and runs extraction on it.
// Nothing is persisted; the client includes the returned document
// metadata and extracted data in the subsequent claim submission.
func (h *Handler) UploadDocument(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("file is required"))
		return
	}

	doc, errMsg := validateUpload(file, actor.ID)
	if errMsg != "" {
		c.JSON(http.StatusUnprocessableEntity, handler.NewErrorResponse(errMsg))
		return
	}

	extracted := h.extractor.Extract(file.Filename)

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"file_info":      doc,
		"extracted_data": extracted,
	}))
}

func (h *Handler) CreateClaim(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.svc.CreateClaim(c.Request.Context(), actor.ID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListClaims(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var filter model.ClaimFilter
	if err := c.ShouldBindQuery(&filter.Pagination); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if status := c.Query("status"); status != "" {
		filter.Status = model.ClaimStatus(status)
		if !filter.Status.Valid() {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unknown status filter"))
			return
		}
	}

	claims, total, err := h.svc.ListClaims(c.Request.Context(), actor, &filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewPaginatedResponse(claims, total, filter.Pagination))
}

func (h *Handler) GetClaim(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	found, err := h.svc.GetClaim(c.Request.Context(), id, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) GetClaimByNumber(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	found, err := h.svc.GetClaimByNumber(c.Request.Context(), c.Param("number"), actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

// AppendDocument attaches another document to a claim still collecting
// them. Ownership is enforced by the service, so a patient can only
// extend their own claim.
func (h *Handler) AppendDocument(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("file is required"))
		return
	}

	doc, errMsg := validateUpload(file, actor.ID)
	if errMsg != "" {
		c.JSON(http.StatusUnprocessableEntity, handler.NewErrorResponse(errMsg))
		return
	}

	updated, err := h.svc.AppendDocument(c.Request.Context(), id, actor, doc)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

// UpdateStatus requests a lifecycle transition. Transitions into
// rejected or pending_documents must explain themselves: the notes end
// up in the patient notification and the status history.
func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	var req model.UpdateClaimStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if req.Notes == "" &&
		(req.Status == model.ClaimStatusRejected || req.Status == model.ClaimStatusPendingDocuments) {
		c.JSON(http.StatusUnprocessableEntity,
			handler.NewErrorResponse("notes are required when rejecting a claim or requesting documents"))
		return
	}

	updated, err := h.svc.RequestTransition(c.Request.Context(), id, actor.ID, actor.Role, req.Status, req.Notes)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) UpdateExtractedData(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	var req model.UpdateExtractedDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.svc.UpdateExtractedData(c.Request.Context(), id, actor, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) AssignClaim(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	var req model.AssignClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.svc.AssignClaim(c.Request.Context(), id, actor, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

// validateUpload applies the document intake rules: PDF or image only,
// 10MB cap. It returns the document metadata to store on the claim;
// the bytes themselves go to the external document store.
func validateUpload(file *multipart.FileHeader, ownerID uuid.UUID) (model.Document, string) {
	contentType := file.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		return model.Document{}, "invalid file type, only PDF and image files are allowed"
	}
	if file.Size > maxUploadSize {
		return model.Document{}, "file size too large, maximum 10MB allowed"
	}

	return model.Document{
		FileName:    file.Filename,
		Size:        file.Size,
		ContentType: contentType,
		StorageRef:  "/uploads/" + ownerID.String() + "/" + file.Filename,
	}, ""
}
