package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/storage"
	"github.com/gin-gonic/gin"
)

func GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.CurrentProfile(c))
}

type profileInput struct {
	FullName *string `json:"full_name" binding:"omitempty,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=50"`
	Company  *string `json:"company" binding:"omitempty,max=200"`
}

func UpdateProfile(c *gin.Context) {
	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	updates := map[string]interface{}{}
	if in.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Company != nil {
		updates["company"] = strings.TrimSpace(*in.Company)
	}

	p := middlewares.CurrentProfile(c)
	if len(updates) > 0 {
		if err := config.DB.Model(p).Updates(updates).Error; err != nil {
			dbError(c, err, "profile")
			return
		}
	}
	c.JSON(http.StatusOK, p)
}

// uploadImage stores the multipart "file" under the caller's prefix and
// returns its URL. It writes the error response and returns false on failure.
func uploadImage(c *gin.Context, kind string) (string, bool) {
	if deps.Storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not configured"})
		return "", false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return "", false
	}
	if fh.Size > storage.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File must be 5 MB or smaller"})
		return "", false
	}
	contentType := fh.Header.Get("Content-Type")
	if !storage.IsImage(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed"})
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return "", false
	}
	defer f.Close()

	p := middlewares.CurrentProfile(c)
	url, err := deps.Storage.Put(c.Request.Context(), storage.ObjectKey(p.ID, kind, fh.Filename), f, fh.Size, contentType)
	if err != nil {
		slog.Error("upload file", "user_id", p.ID, "kind", kind, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store file"})
		return "", false
	}
	return url, true
}

func UploadAvatar(c *gin.Context) {
	url, ok := uploadImage(c, "avatars")
	if !ok {
		return
	}
	p := middlewares.CurrentProfile(c)
	if err := config.DB.Model(p).Update("avatar_url", url).Error; err != nil {
		dbError(c, err, "profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

