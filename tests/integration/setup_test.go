package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cargotrack/internal/config"
	"cargotrack/internal/handlers"
	"cargotrack/internal/logger"
	"cargotrack/internal/middleware"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
	"cargotrack/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    *config.Config
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Warehouse{},
		&models.Track{},
		&models.WarehouseTransfer{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database and a miniredis-backed login rate limiter.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	cfg := &config.Config{
		JWTSecret:        "integration-test-secret",
		JWTExpirationDur: time.Hour,
		LoginRateLimit:   5,
		LoginRateWindow:  time.Minute,
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := middleware.NewRateLimiter(redisClient)

	// Services
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	warehouseService := services.NewWarehouseService(db)
	trackService := services.NewTrackService(db)
	batchService := services.NewBatchService(db, auditService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService, cfg)
	userHandler := handlers.NewUserHandler(userService, auditService)
	warehouseHandler := handlers.NewWarehouseHandler(warehouseService, auditService)
	trackHandler := handlers.NewTrackHandler(trackService, auditService)
	batchHandler := handlers.NewBatchHandler(batchService)
	auditHandler := handlers.NewAuditHandler(auditService)
	statsHandler := handlers.NewStatsHandler(userService, trackService, warehouseService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", middleware.LoginRateLimit(limiter, cfg), authHandler.Login)
	v1.GET("/public/warehouses", warehouseHandler.ListActive)

	// Authenticated routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService, cfg))

	protected.GET("/profile", authHandler.Profile)
	protected.POST("/tracks/assign", trackHandler.Assign)
	protected.GET("/tracks/my", trackHandler.MyTracks)
	protected.GET("/tracks/search/:number", trackHandler.Search)
	protected.GET("/warehouses/active", warehouseHandler.ListActive)

	// Staff routes
	admin := protected.Group("/")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/users", userHandler.List)
	admin.GET("/users/:id", userHandler.Get)
	admin.POST("/users", userHandler.Create)
	admin.PATCH("/users/:id/active", userHandler.ToggleActive)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/users/code/:code/tracks", trackHandler.UserTracks)

	admin.POST("/tracks/upload", trackHandler.Upload)
	admin.GET("/tracks", trackHandler.List)
	admin.GET("/tracks/by-date/:date", trackHandler.ByDate)
	admin.GET("/tracks/calendar", trackHandler.Calendar)
	admin.POST("/tracks/:number/receive", trackHandler.Receive)
	admin.POST("/tracks/:number/transfer", trackHandler.Transfer)
	admin.POST("/tracks/:number/handout", trackHandler.Handout)
	admin.POST("/tracks/:number/archive", trackHandler.Archive)
	admin.PATCH("/tracks/id/:id/status", trackHandler.UpdateStatus)

	admin.GET("/warehouses", warehouseHandler.ListAll)
	admin.GET("/warehouses/:code/stats", warehouseHandler.Stats)
	admin.GET("/warehouses/:code/inventory", trackHandler.Inventory)

	admin.POST("/batch/deliver", batchHandler.Deliver)
	admin.POST("/batch/delete", batchHandler.Delete)
	admin.POST("/batch/status-by-date", batchHandler.StatusByDate)
	admin.POST("/batch/status-by-warehouse", batchHandler.StatusByWarehouse)

	admin.GET("/stats", statsHandler.System)
	admin.GET("/audit/users/:email", auditHandler.ByActor)
	admin.GET("/audit/entity/:entity/:id", auditHandler.ByEntity)

	// Superadmin routes
	super := protected.Group("/")
	super.Use(middleware.RequireSuperadmin())

	super.POST("/warehouses", warehouseHandler.Create)
	super.PUT("/warehouses/:id", warehouseHandler.Update)
	super.DELETE("/warehouses/:id", warehouseHandler.Delete)
	super.PATCH("/users/:id/role", userHandler.ChangeRole)
	super.PATCH("/users/:id/warehouse", userHandler.AssignWarehouse)
	super.GET("/users/export", userHandler.ExportCSV)
	super.GET("/audit/logs", auditHandler.List)
	super.GET("/audit/stats", auditHandler.Stats)

	return &testApp{DB: db, Router: router, Cfg: cfg}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// seedCounter keeps seeded emails, phone numbers, and codes unique.
var seedCounter atomic.Int64

// seedUser inserts a user directly into the database with a known password.
func (app *testApp) seedUser(t *testing.T, role models.Role, warehouseCode string) *models.User {
	t.Helper()

	n := seedCounter.Add(1)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	code := fmt.Sprintf("%d", 9000+n)
	user := &models.User{
		Email:             fmt.Sprintf("seed%d@test.com", n),
		Password:          string(hash),
		Name:              fmt.Sprintf("Seed User %d", n),
		WhatsApp:          fmt.Sprintf("+7700000%04d", n),
		Branch:            "Almaty",
		PersonalCode:      &code,
		Role:              role,
		IsActive:          true,
		AssignedWarehouse: warehouseCode,
	}
	if err := app.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// registerClient registers a client account and returns its personal code.
func (app *testApp) registerClient(t *testing.T, email string) string {
	t.Helper()

	n := seedCounter.Add(1)
	body := fmt.Sprintf(`{"name":"Test Client","email":%q,"password":"password123","whatsapp":"+7701000%04d","branch":"Almaty"}`, email, n)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	code, _ := result["personal_code"].(string)
	if code == "" {
		t.Fatal("expected a personal code from registration")
	}
	return code
}

// loginUser logs in and returns the bearer token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	token, _ := result["access_token"].(string)
	if token == "" {
		t.Fatal("expected a non-empty access token")
	}
	return token
}

// loginSeeded seeds a user with the given role and returns the user and a token.
func (app *testApp) loginSeeded(t *testing.T, role models.Role, warehouseCode string) (*models.User, string) {
	t.Helper()
	user := app.seedUser(t, role, warehouseCode)
	return user, app.loginUser(t, user.Email, "password123")
}

// createWarehouse creates a warehouse through the API as the given superadmin.
func (app *testApp) createWarehouse(t *testing.T, token, code, name string) {
	t.Helper()
	body := fmt.Sprintf(`{"code":%q,"name":%q}`, code, name)
	rec := app.request("POST", "/api/v1/warehouses", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create warehouse failed: %d %s", rec.Code, rec.Body.String())
	}
}

// errorCode extracts the error code from an error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}
