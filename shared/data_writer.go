package shared

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var jsonAPI = sonic.Config{
	UseNumber:            true,
	EscapeHTML:           false,
	SortMapKeys:          false,
	CompactMarshaler:     true,
	NoQuoteTextMarshaler: true,
	NoNullSliceOrMap:     true,
}.Froze()

var (
	successResponse       = mustMarshal(Response{Code: 200, Message: "Success"})
	createdResponse       = mustMarshal(Response{Code: 201, Message: "Created"})
	notFoundResponse      = mustMarshal(Response{Code: 404, Message: "Not Found"})
	unauthorizedResponse  = mustMarshal(Response{Code: 401, Message: "Unauthorized"})
	forbiddenResponse     = mustMarshal(Response{Code: 403, Message: "Forbidden"})
	internalErrorResponse = mustMarshal(Response{Code: 500, Message: "Internal Server Error"})
)

func mustMarshal(v interface{}) []byte {
	b, _ := jsonAPI.Marshal(v)
	return b
}

// JSONMarshal and JSONUnmarshal are handed to fiber as its encoder/decoder.
func JSONMarshal(v interface{}) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

func JSONUnmarshal(data []byte, v interface{}) error {
	return jsonAPI.Unmarshal(data, v)
}

func ResponseJSON(c *fiber.Ctx, httpCode int, message string, data interface{}) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)

	if data == nil {
		switch {
		case httpCode == 200 && message == "Success":
			return c.Status(httpCode).Send(successResponse)
		case httpCode == 201 && message == "Created":
			return c.Status(httpCode).Send(createdResponse)
		case httpCode == 404 && message == "Not Found":
			return c.Status(httpCode).Send(notFoundResponse)
		case httpCode == 401 && message == "Unauthorized":
			return c.Status(httpCode).Send(unauthorizedResponse)
		case httpCode == 403 && message == "Forbidden":
			return c.Status(httpCode).Send(forbiddenResponse)
		case httpCode == 500 && message == "Internal Server Error":
			return c.Status(httpCode).Send(internalErrorResponse)
		}
	}

	body, err := jsonAPI.Marshal(Response{
		Code:    httpCode,
		Message: message,
		Data:    data,
	})
	if err != nil {
		return err
	}
	return c.Status(httpCode).Send(body)
}

func ResponseOK(c *fiber.Ctx, data interface{}) error {
	return ResponseJSON(c, fiber.StatusOK, "Success", data)
}

func ResponseCreated(c *fiber.Ctx, data interface{}) error {
	return ResponseJSON(c, fiber.StatusCreated, "Created", data)
}

// ResponseError renders err, falling back to a bare 500 for untyped errors.
func ResponseError(c *fiber.Ctx, err error) error {
	if appErr, ok := GetAppError(err); ok {
		return ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		return ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}
	return ResponseJSON(c, fiber.StatusInternalServerError, "Internal Server Error", nil)
}
