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

package apiresponses

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func record(respond func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respond(c)
	return rec
}

func TestRespondNotFound(t *testing.T) {
	rec := record(func(c *gin.Context) { RespondNotFound(c, "task not found") })
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"task not found","code":"NOT_FOUND"}`, rec.Body.String())
}

func TestRespondBadRequest(t *testing.T) {
	rec := record(func(c *gin.Context) { RespondBadRequest(c, "subject must not be empty") })
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"subject must not be empty","code":"BAD_REQUEST"}`, rec.Body.String())
}

func TestRespondInternalError_DefaultMessage(t *testing.T) {
	rec := record(func(c *gin.Context) { RespondInternalError(c, "") })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, rec.Body.String())
}
