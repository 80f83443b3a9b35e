package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/infrastructure/config"
	"github.com/aicost/backend/internal/infrastructure/persistence"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
	"github.com/aicost/backend/internal/interfaces/http/dto"
	"github.com/aicost/backend/internal/interfaces/http/middleware"
	"github.com/aicost/backend/internal/interfaces/http/router"
)

type apiEnv struct {
	engine *gin.Engine
	orgID  uuid.UUID
}

// envelope mirrors dto.Response with raw data for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.BudgetModel{},
		&models.BudgetPeriodModel{},
		&models.BudgetThresholdModel{},
		&models.BudgetAdjustmentModel{},
		&models.UsageRecordModel{},
		&models.AlertEventModel{},
	))

	logger := zap.NewNop()

	budgetRepo := persistence.NewGormBudgetRepository(db)
	periodRepo := persistence.NewGormPeriodRepository(db)
	thresholdRepo := persistence.NewGormThresholdRepository(db)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db)
	usageRepo := persistence.NewGormUsageRecordRepository(db)
	alertRepo := persistence.NewGormAlertEventRepository(db)

	periodMgr := budgetapp.NewPeriodManager(budgetRepo, periodRepo, thresholdRepo, logger)
	calcEngine := budgetapp.NewCalculationEngine(budgetRepo, periodRepo, usageRepo, periodMgr, logger)
	checker := budgetapp.NewThresholdChecker(budgetRepo, periodRepo, thresholdRepo, alertRepo, periodMgr, logger)
	allocationSvc := budgetapp.NewAllocationService(budgetRepo, periodRepo, adjustmentRepo, periodMgr)
	budgetSvc := budgetapp.NewBudgetService(budgetRepo, periodRepo, thresholdRepo, adjustmentRepo, periodMgr, nil)
	jobsSvc := budgetapp.NewJobsService(budgetRepo, alertRepo, periodMgr, calcEngine, checker, nil, budgetapp.JobsConfig{ForecastEnabled: true}, logger)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.HTTP.CORSAllowOrigins = []string{"*"}

	r := router.New(cfg, logger)
	r.Register(
		NewBudgetHandler(budgetSvc, allocationSvc, periodMgr, calcEngine),
		NewJobsHandler(jobsSvc, checker),
	)

	return &apiEnv{
		engine: r.Setup(),
		orgID:  uuid.New(),
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return e.doAs(t, method, path, body, e.orgID.String())
}

func (e *apiEnv) doAs(t *testing.T, method, path string, body any, orgHeader string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if orgHeader != "" {
		req.Header.Set(middleware.OrganizationHeader, orgHeader)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (e *apiEnv) createBudget(t *testing.T, body map[string]any) *budgetapp.BudgetResponse {
	t.Helper()
	if _, ok := body["name"]; !ok {
		body["name"] = "Monthly AI budget"
	}
	if _, ok := body["type"]; !ok {
		body["type"] = "organization"
	}
	if _, ok := body["amount"]; !ok {
		body["amount"] = "1000"
	}
	if _, ok := body["period_type"]; !ok {
		body["period_type"] = "monthly"
	}

	rec, env := e.do(t, http.MethodPost, "/api/v1/budgets", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeData[*budgetapp.BudgetResponse](t, env)
	return resp
}
