package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeGROOVE-dev/postcard/pkg/imageproxy"
	"github.com/codeGROOVE-dev/postcard/pkg/media"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/share"
)

// MsgMissingURL is returned by the share endpoint when no post is named.
const MsgMissingURL = "Missing URL."

type scrapeRequest struct {
	URL any `json:"url"`
}

type shareResponse struct {
	Post     *post.Post     `json:"post"`
	ShareURL string         `json:"share_url"`
	Settings share.Settings `json:"settings"`
}

func (s *Server) scrapePost(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.DebugContext(c.Request.Context(), "unreadable request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": post.MsgEmptyInput})
		return
	}
	// Non-string values are treated as missing.
	input, _ := req.URL.(string)

	p, ok := s.extract(c, input)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) sharePost(c *gin.Context) {
	source, settings := share.Parse(c.Request.URL.Query())
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgMissingURL})
		return
	}

	var p *post.Post
	if source == share.DefaultSource {
		p = post.Placeholder()
	} else {
		var ok bool
		if p, ok = s.extract(c, source); !ok {
			return
		}
	}

	c.JSON(http.StatusOK, shareResponse{
		Post:     p,
		ShareURL: share.Build(s.sharePath, source, settings),
		Settings: settings,
	})
}

func (s *Server) proxyImage(c *gin.Context) {
	rawURL := c.Query("url")
	img, err := s.images.Fetch(c.Request.Context(), rawURL)
	if err != nil {
		status := imageproxy.Status(err)
		s.logger.InfoContext(c.Request.Context(), "image proxy refused", "url", rawURL, "status", status, "error", err)
		c.Status(status)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// extract runs the extractor and writes the error response itself on failure.
func (s *Server) extract(c *gin.Context, input string) (*post.Post, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	p, err := s.extractor.Extract(ctx, input)
	if err != nil {
		status, msg := post.StatusOf(err)
		if status == http.StatusInternalServerError {
			s.logger.ErrorContext(ctx, "extraction failed", "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return nil, false
	}

	if s.images != nil {
		p.Author.Avatar = media.Proxied(ImagePath, p.Author.Avatar)
		p.Content.Images = media.ProxiedAll(ImagePath, p.Content.Images)
	}
	return p, true
}
