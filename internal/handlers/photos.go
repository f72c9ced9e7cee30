package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relatorios/internal/apperrors"
	"relatorios/pkg/imagenorm"
)

type UploadPhotoResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func jsonError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}

// @Summary Upload photo
// @Description Attach one photo to an existing report
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param report_id path int true "report id"
// @Param photo formData file true "image (png, jpg, jpeg, gif, webp)"
// @Success 200 {object} UploadPhotoResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /upload_photo/{report_id} [post]
func UploadPhotoHandler(c *gin.Context, d *Deps) {
	reportID, ok := parseID(c, "report_id")
	if !ok {
		jsonError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		jsonError(c, http.StatusBadRequest, "Nenhuma foto enviada")
		return
	}
	if fh.Filename == "" {
		jsonError(c, http.StatusBadRequest, "Nenhuma foto selecionada")
		return
	}
	if err := imagenorm.ValidateExtension(fh.Filename); err != nil {
		jsonError(c, http.StatusBadRequest, "Formato de arquivo não suportado")
		return
	}

	up, err := readUpload(fh, "")
	if err != nil {
		jsonError(c, apperrors.HTTPStatus(err), err.Error())
		return
	}
	photo, err := d.Service.UploadPhoto(c.Request.Context(), reportID, up)
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status == http.StatusNotFound {
			jsonError(c, status, msgReportNotFound)
			return
		}
		d.Log.Warn("upload photo failed", zap.Uint("report_id", reportID), zap.Error(err))
		jsonError(c, status, "Erro ao processar imagem: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, UploadPhotoResponse{Success: true, Filename: photo.Filename})
}

// @Summary Delete photo
// @Description Delete a photo row and its file
// @Tags photos
// @Produce json
// @Param photo_id path int true "photo id"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /delete_photo/{photo_id} [post]
func DeletePhotoHandler(c *gin.Context, d *Deps) {
	photoID, ok := parseID(c, "photo_id")
	if !ok {
		jsonError(c, http.StatusNotFound, "Foto não encontrada")
		return
	}
	if err := d.Service.DeletePhoto(c.Request.Context(), photoID); err != nil {
		if apperrors.IsNotFound(err) {
			jsonError(c, http.StatusNotFound, "Foto não encontrada")
			return
		}
		jsonError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type EditPhotoRequest struct {
	// Image is a data URI, e.g. "data:image/png;base64,iVBOR..."
	Image string `json:"image"`
}

// @Summary Edit photo
// @Description Overwrite a photo in place with an edited image
// @Tags photos
// @Accept json
// @Produce json
// @Param photo_id path int true "photo id"
// @Param body body EditPhotoRequest true "edited image"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /edit_photo/{photo_id} [post]
func EditPhotoHandler(c *gin.Context, d *Deps) {
	photoID, ok := parseID(c, "photo_id")
	if !ok {
		jsonError(c, http.StatusNotFound, "Foto não encontrada")
		return
	}
	var req EditPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		jsonError(c, http.StatusBadRequest, "Imagem não enviada")
		return
	}
	if err := d.Service.EditPhoto(c.Request.Context(), photoID, req.Image); err != nil {
		if apperrors.IsNotFound(err) {
			jsonError(c, http.StatusNotFound, "Foto não encontrada")
			return
		}
		jsonError(c, apperrors.HTTPStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// ServeAttachmentHandler serves a stored photo by file name. Stored photos are
// always JPEG whatever their extension.
func ServeAttachmentHandler(c *gin.Context, d *Deps) {
	name := strings.TrimPrefix(c.Param("filename"), "/")
	if !d.Files.Exists(name) {
		c.String(http.StatusNotFound, "Arquivo não encontrado")
		return
	}
	path, err := d.Files.Path(name)
	if err != nil {
		c.String(http.StatusNotFound, "Arquivo não encontrado")
		return
	}
	c.Header("Content-Type", "image/jpeg")
	c.File(path)
}

// @Summary Audit photos
// @Description Compare a report's photo rows with the files in the upload directory
// @Tags photos
// @Produce json
// @Param report_id path int true "report id"
// @Success 200 {object} attachments.Audit
// @Failure 500 {object} ErrorResponse
// @Router /debug_photos/{report_id} [get]
func AuditPhotosHandler(c *gin.Context, d *Deps) {
	reportID, ok := parseID(c, "report_id")
	if !ok {
		jsonError(c, http.StatusNotFound, msgReportNotFound)
		return
	}
	audit, err := d.Service.AuditPhotos(c.Request.Context(), reportID)
	if err != nil {
		jsonError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, audit)
}
