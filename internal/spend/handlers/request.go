package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	e "github.com/gartstein/toolspend/internal/spend/errors"
	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/gin-gonic/gin"
)

// typeMessages explains a JSON value of the wrong type per field.
var typeMessages = map[string]string{
	"name":               "Name must be a string",
	"description":        "Description must be a string",
	"vendor":             "Vendor must be a string",
	"website_url":        "Website URL must be a string",
	"owner_department":   "Owner department must be a string",
	"status":             "Status must be a string",
	"category_id":        "Category ID must be an integer",
	"active_users_count": "Active users count must be an integer",
}

// maxPage keeps (page-1)*limit within an int for every allowed limit.
const maxPage = math.MaxInt / models.MaxPageSize

type listParams struct {
	query   models.ToolQuery
	page    int
	applied map[string]interface{}
}

// parseListParams reads paging, sorting and filters from the query string.
// Empty filters are skipped and cost bounds that do not parse are ignored.
func parseListParams(c *gin.Context) listParams {
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	limit := models.ClampLimit(intQuery(c, "limit", models.DefaultPageSize))

	p := listParams{
		query: models.ToolQuery{
			Limit:   limit,
			Offset:  (page - 1) * limit,
			SortKey: c.Query("sort"),
			Order:   models.ParseSortOrder(c.Query("order")),
		},
		page:    page,
		applied: map[string]interface{}{},
	}

	if v := c.Query("department"); v != "" {
		department := models.Department(v)
		p.query.Filter.Department = &department
		p.applied["department"] = v
	}
	if v := c.Query("status"); v != "" {
		status := models.Status(v)
		p.query.Filter.Status = &status
		p.applied["status"] = v
	}
	if f, ok := floatQuery(c, "min_cost"); ok {
		p.query.Filter.MinCost = &f
		p.applied["min_cost"] = f
	}
	if f, ok := floatQuery(c, "max_cost"); ok {
		p.query.Filter.MaxCost = &f
		p.applied["max_cost"] = f
	}
	if v := c.Query("category"); v != "" {
		p.query.Filter.Category = &v
		p.applied["category"] = v
	}
	return p
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func floatQuery(c *gin.Context, key string) (float64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// toolID parses the :id path segment, which must be all digits.
func toolID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// decodeBody reads a JSON object into dst. A body that is not an object is
// ErrMalformedRequest; fields of the wrong type are reported together in a
// *errors.ValidationError.
func decodeBody(c *gin.Context, dst interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrMalformedRequest, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return e.ErrMalformedRequest
	}

	err = json.Unmarshal(body, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErrors(body, reflect.TypeOf(dst).Elem(), typeErr)
	}
	return fmt.Errorf("%w: %v", e.ErrMalformedRequest, err)
}

// typeErrors decodes each member of body on its own, since encoding/json
// only returns the first type mismatch of a document.
func typeErrors(body []byte, target reflect.Type, first *json.UnmarshalTypeError) *e.ValidationError {
	verr := e.NewValidationError()
	verr.Add(first.Field, typeMessage(first.Field))

	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return verr
	}
	for name, raw := range members {
		single, err := json.Marshal(map[string]json.RawMessage{name: raw})
		if err != nil {
			continue
		}
		var typeErr *json.UnmarshalTypeError
		err = json.Unmarshal(single, reflect.New(target).Interface())
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			verr.Add(typeErr.Field, typeMessage(typeErr.Field))
		}
	}
	return verr
}

func typeMessage(field string) string {
	if msg, ok := typeMessages[field]; ok {
		return msg
	}
	return fmt.Sprintf("%s has an invalid type", field)
}
