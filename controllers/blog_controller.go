package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomKlotzPro/openbite/middleware"
	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
	"github.com/TomKlotzPro/openbite/services"
	"github.com/TomKlotzPro/openbite/utils"
)

// BlogController exposes posts, comments and upvotes over HTTP.
type BlogController struct {
	blogs   *services.BlogService
	upvotes *services.UpvoteService
}

// NewBlogController creates a new BlogController instance.
func NewBlogController(blogs *services.BlogService, upvotes *services.UpvoteService) *BlogController {
	return &BlogController{blogs: blogs, upvotes: upvotes}
}

type commentRequest struct {
	BlogID  string `json:"blogID" binding:"required"`
	Comment string `json:"comment" binding:"required"`
}

type replaceCommentsRequest struct {
	BlogID   string                `json:"blogID" binding:"required"`
	Comments []models.CommentEntry `json:"comments"`
}

// ListBlogs returns one page of published posts: ?pageSize=&pageNum=&filter[field]=value.
func (c *BlogController) ListBlogs(ctx *gin.Context) {
	size, num := services.ParsePageParams(ctx.Query("pageSize"), ctx.Query("pageNum"), c.blogs.MaxPageSize())
	page, err := c.blogs.ListPublished(ctx.Request.Context(), size, num, ctx.QueryMap("filter"))
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetBySlug answers 422 for a missing slug, as clients of the public page expect.
func (c *BlogController) GetBySlug(ctx *gin.Context) {
	post, err := c.blogs.GetBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		utils.Error(ctx, http.StatusUnprocessableEntity, utils.CodeUnprocessable, err.Error())
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (c *BlogController) GetByID(ctx *gin.Context) {
	post, err := c.blogs.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

// ListMine returns the caller's posts, drafts included.
func (c *BlogController) ListMine(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	posts, err := c.blogs.ListMine(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, posts)
}

func (c *BlogController) Create(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	var req services.CreatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	post, err := c.blogs.Create(ctx.Request.Context(), ctx.Query("lockId"), req, id)
	if err != nil {
		if errors.Is(err, services.ErrCreationInProgress) {
			utils.Error(ctx, http.StatusUnprocessableEntity, utils.CodeCreationBusy, "Blog is getting saved!")
			return
		}
		utils.Error(ctx, http.StatusUnprocessableEntity, utils.CodeUnprocessable, err.Error())
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

// Update applies a partial update. Missing posts and store failures both answer 422;
// a concurrent modification answers 409.
func (c *BlogController) Update(ctx *gin.Context) {
	var req services.UpdatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}
	post, err := c.blogs.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if services.IsNotFound(err) {
		utils.Error(ctx, http.StatusUnprocessableEntity, utils.CodeUnprocessable, err.Error())
		return
	}
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (c *BlogController) AddComment(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}
	post, err := c.blogs.AddComment(ctx.Request.Context(), req.BlogID, req.Comment, id)
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

func (c *BlogController) ReplaceComments(ctx *gin.Context) {
	var req replaceCommentsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}
	post, err := c.blogs.ReplaceComments(ctx.Request.Context(), req.BlogID, req.Comments)
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

func (c *BlogController) Delete(ctx *gin.Context) {
	if err := c.blogs.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ToggleUpvote flips the caller's upvote on the post. The body is optional.
func (c *BlogController) ToggleUpvote(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}
	var req services.UpvoteInput
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}
	post, err := c.upvotes.Toggle(ctx.Request.Context(), ctx.Param("id"), req, id)
	if err != nil {
		respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func identity(ctx *gin.Context) (models.Identity, bool) {
	id, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "unauthorized")
	}
	return id, ok
}

// respondError maps service and repository errors onto statuses; anything unrecognised
// answers with fallback and the raw error message.
func respondError(ctx *gin.Context, err error, fallback int) {
	var rerr *services.ReconciliationError
	switch {
	case services.IsNotFound(err):
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "blog not found")
	case errors.Is(err, repository.ErrVersionConflict):
		utils.Error(ctx, http.StatusConflict, utils.CodeConflict, "blog was modified concurrently, retry")
	case errors.As(err, &rerr):
		utils.Sugar.Errorw("upvote reconciliation failed", "post", rerr.PostID, "upvote", rerr.UpvoteID, "err", rerr.Err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeReconciliation, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusUnprocessableEntity, utils.CodeUnprocessable, err.Error())
	default:
		utils.Error(ctx, fallback, utils.CodeUnprocessable, err.Error())
	}
}
