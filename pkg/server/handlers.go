package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/export"
	"github.com/harrisonrobin/applytrack/pkg/supabase"
	"github.com/harrisonrobin/applytrack/pkg/view"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) health(c *gin.Context) {
	loaded, count, at := s.status()
	body := gin.H{"status": "ok", "loaded": loaded, "records": count}
	if loaded {
		body["refreshed_at"] = at
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listApplications(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := s.Records(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	res, err := view.Apply(records, q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// exportApplications returns every record matching the filters, sorted, as
// an xlsx attachment. Pagination parameters are ignored.
func (s *Server) exportApplications(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Sort == "" {
		q.Sort = view.DefaultSort
	}
	if !applicant.HasKey(q.Sort) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown sort field %q", q.Sort)})
		return
	}
	records, err := s.Records(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	filtered := view.Filter(records, q)
	view.SortBy(filtered, q.Sort, q.Order)

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, filtered); err != nil {
		if errors.Is(err, export.ErrNoRecords) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build spreadsheet"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.now())))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) refresh(c *gin.Context) {
	records, err := s.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	_, _, at := s.status()
	c.JSON(http.StatusOK, gin.H{"records": len(records), "refreshed_at": at})
}

// me returns the user the bearer token resolved to. Without authentication
// configured there is no user and the endpoint says so.
func (s *Server) me(c *gin.Context) {
	v, ok := c.Get(userKey)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"auth_enabled": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_enabled": true, "user": v.(*supabase.User)})
}

// parseQuery reads name, form, date, role, sort, order, page and size.
func parseQuery(c *gin.Context) (view.Query, error) {
	q := view.Query{
		Name: c.Query("name"),
		Form: c.Query("form"),
		Date: c.Query("date"),
		Role: c.Query("role"),
		Sort: c.Query("sort"),
	}
	order, err := view.ParseOrder(c.Query("order"))
	if err != nil {
		return q, err
	}
	q.Order = order

	if q.Page, err = intParam(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(c, "size"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
