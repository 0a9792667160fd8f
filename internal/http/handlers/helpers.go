package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/platform/apierr"
)

const maxPageSize = 200

// pathUUID parses a uuid route param, writing a 400 and returning false when invalid.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		response.RespondErr(c, apierr.InvalidParam(name, raw))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return false
	}
	return true
}

// page reads limit and offset query params. Limit is clamped to maxPageSize.
func page(c *gin.Context) (limit, offset int, ok bool) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		response.RespondErr(c, err)
		return 0, 0, false
	}
	offset, err = queryInt(c, "offset", 0)
	if err != nil {
		response.RespondErr(c, err)
		return 0, 0, false
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.BadRequest("invalid_"+name, fmt.Errorf("%s must be an integer", name))
	}
	return n, nil
}

func queryDecimal(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apierr.BadRequest("invalid_"+name, fmt.Errorf("%s must be a decimal", name))
	}
	return &d, nil
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.InvalidParam(name, raw)
	}
	return &id, nil
}
