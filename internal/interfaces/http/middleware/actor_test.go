package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newActorEngine() (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)
	var seen uuid.UUID
	engine := gin.New()
	engine.Use(Actor())
	engine.GET("/ping", func(c *gin.Context) {
		seen = GetActorID(c)
		c.Status(http.StatusOK)
	})
	return engine, &seen
}

func TestActor_ParsesHeader(t *testing.T) {
	engine, seen := newActorEngine()
	actorID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(ActorIDHeader, actorID.String())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, actorID, *seen)
}

func TestActor_AnonymousWithoutHeader(t *testing.T) {
	engine, seen := newActorEngine()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uuid.Nil, *seen)
}

func TestActor_MalformedHeaderNotRejected(t *testing.T) {
	engine, seen := newActorEngine()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(ActorIDHeader, "not-a-uuid")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uuid.Nil, *seen)
}
