package middleware

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/handlers"
	"github.com/akolanti/DocTalk/internal/telemetry"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	trace := req.Header.Get(config.TRACE_ID_HEADER)
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With(string(config.TRACE_ID_KEY), trace)

	ctx := logger_i.ContextWithTraceID(req.Context(), trace)
	ctx, hub := telemetry.WithHub(ctx)
	hub.Scope().SetTag("trace_id", trace)

	re.writer.Header().Set(config.TRACE_ID_HEADER, trace)
	re.req = req.WithContext(ctx)
	return re
}

// recovery turns a handler panic into a 500 JSON response.
func recovery(re requestResponseStruct) {
	if err := recover(); err != nil {
		if err == http.ErrAbortHandler {
			panic(err)
		}
		re.logger.Error("Recovered from panic", "panic", fmt.Sprint(err))
		telemetry.RecoverPanic(re.req.Context(), err)
		handlers.WriteErrorResponse(re.writer, http.StatusInternalServerError, "Internal server error")
	}
}

func (m *Middleware) cors(re requestResponseStruct) requestResponseStruct {
	origin := re.req.Header.Get("Origin")
	if origin == "" {
		return re
	}
	if !m.allowAny && !m.origins[origin] {
		re.logger.Warn("Origin not allowed", "origin", origin)
		if re.req.Method == http.MethodOptions {
			re.badRequest = failureStruct{isBadRequest: true, httpCode: http.StatusForbidden, errorMessage: "Origin not allowed"}
		}
		return re
	}

	h := re.writer.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	h.Set("Access-Control-Expose-Headers", config.TRACE_ID_HEADER)
	if re.req.Method == http.MethodOptions && re.req.Header.Get("Access-Control-Request-Method") != "" {
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+config.TRACE_ID_HEADER)
		h.Set("Access-Control-Max-Age", "600")
		re.preflight = true
	}
	return re
}

func (m *Middleware) authenticate(re requestResponseStruct) requestResponseStruct {
	if !IsValidBearerToken(re.req.Header.Get("Authorization"), m.authToken, re.logger) {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			errorMessage: "Unauthorized",
		}
		return re
	}
	re.logger.Debug("Authorized")
	return re
}

// IsValidBearerToken accepts everything when no token is configured.
func IsValidBearerToken(authHeader string, token string, log *logger_i.Logger) bool {
	if token == "" {
		return true
	}
	if authHeader == "" {
		log.Warn("Empty authorization header")
		return false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Warn("No Bearer header")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(token)) != 1 {
		log.Warn("Invalid authorization header")
		return false
	}
	return true
}

func (m *Middleware) rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !m.limiter.GetLimiter(ip).Allow() {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded. Slow down.",
		}
	}
	return re
}

func handleBadRequest(re requestResponseStruct) {
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", re.req.RemoteAddr)
	handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.errorMessage)
}
