/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package apiresponses provides standardized HTTP API response helpers
// shared between the route controllers.
package apiresponses

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError represents a standardized error response.
// This ensures consistent error message formatting across all API endpoints.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondNotFound sends a 404 Not Found response.
func RespondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIError{
		Error: message,
		Code:  "NOT_FOUND",
	})
}

// RespondBadRequest sends a 400 Bad Request response. Use this for
// validation and malformed-input failures.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondInternalError sends a 500 Internal Server Error response.
func RespondInternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: message,
		Code:  "INTERNAL_ERROR",
	})
}
