package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/scholarship_backend/internal/middleware"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

// ScholarshipController exposes the engine over HTTP. The caller of every
// operation is the authenticated account address.
type ScholarshipController struct {
	Engine *scholarship.Engine
}

type addressRequest struct {
	Address string `json:"address" binding:"required"`
}

func (s *ScholarshipController) Instantiate(c *gin.Context) {
	var req scholarship.InstantiateMsg
	if !bind(c, &req) {
		return
	}
	res, err := s.Engine.Initialize(c.Request.Context(), middleware.Caller(c), req)
	respond(c, http.StatusCreated, res, err)
}

func (s *ScholarshipController) RegisterStudent(c *gin.Context) {
	var req addressRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.Engine.RegisterStudent(c.Request.Context(), middleware.Caller(c), req.Address)
	respond(c, http.StatusCreated, res, err)
}

func (s *ScholarshipController) ApproveStudent(c *gin.Context) {
	res, err := s.Engine.ApproveStudent(c.Request.Context(), middleware.Caller(c), c.Param("address"))
	respond(c, http.StatusOK, res, err)
}

func (s *ScholarshipController) Claim(c *gin.Context) {
	res, err := s.Engine.ClaimScholarship(c.Request.Context(), middleware.Caller(c))
	respond(c, http.StatusOK, res, err)
}

// Execute accepts the tagged message form, e.g. {"claim_scholarship":{}}.
func (s *ScholarshipController) Execute(c *gin.Context) {
	var msg scholarship.ExecuteMsg
	if !bind(c, &msg) {
		return
	}
	res, err := s.Engine.Execute(c.Request.Context(), middleware.Caller(c), msg)
	respond(c, http.StatusOK, res, err)
}

func (s *ScholarshipController) GetStudent(c *gin.Context) {
	address := c.Param("address")
	st, err := s.Engine.GetStudent(c.Request.Context(), address)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, studentView(address, st))
}

func (s *ScholarshipController) GetConfig(c *gin.Context) {
	cfg, err := s.Engine.GetConfig(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Query accepts {"get_student":{"address":"..."}} or {"get_config":{}}.
func (s *ScholarshipController) Query(c *gin.Context) {
	var msg scholarship.QueryMsg
	if !bind(c, &msg) {
		return
	}
	out, err := s.Engine.Query(c.Request.Context(), msg)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if st, ok := out.(scholarship.Student); ok {
		out = studentView(msg.GetStudent.Address, st)
	}
	c.JSON(http.StatusOK, out)
}

func studentView(address string, st scholarship.Student) gin.H {
	return gin.H{
		"address":  address,
		"approved": st.Approved,
		"claimed":  st.Claimed,
	}
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		middleware.AbortWithError(c, &scholarship.ValidationError{Field: "body", Err: err})
		return false
	}
	return true
}

func respond(c *gin.Context, status int, res scholarship.Response, err error) {
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(status, res)
}
