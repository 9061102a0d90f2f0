package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"affily/internal/models"
	"affily/internal/repository"
	"affily/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.WhitelistEntry{},
		&models.ConversionPoint{},
		&models.RewardTier{},
		&models.Referral{},
		&models.Click{},
		&models.EngagementSnapshot{},
		&models.ConversionLog{},
		&models.PaymentTransaction{},
		&models.User{},
		&models.ErrorLog{},
	))
	return db
}

const testAPIKey = "test-api-key"

type conversionFixture struct {
	db       *gorm.DB
	router   *gin.Engine
	project  *models.Project
	referral *models.Referral
}

func newConversionFixture(t *testing.T, project *models.Project) *conversionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	projectRepo := repository.NewProjectRepository(db)
	require.NoError(t, projectRepo.Create(project, testAPIKey))

	referral := &models.Referral{
		ID:              uuid.NewString(),
		ProjectID:       project.ID,
		AffiliateWallet: "0x3000000000000000000000000000000000000003",
	}
	require.NoError(t, db.Create(referral).Error)

	h := NewConversionHandler(
		projectRepo,
		repository.NewReferralRepository(db),
		repository.NewConversionRepository(db),
		ws.NewHub(),
	)
	router := gin.New()
	router.POST("/api/v1/conversions", h.Log)
	return &conversionFixture{db: db, router: router, project: project, referral: referral}
}

func escrowProject(points ...models.ConversionPoint) *models.Project {
	return &models.Project{
		ID:                   uuid.NewString(),
		ProjectName:          "Escrow Campaign",
		ProjectType:          models.ProjectTypeEscrowPayment,
		OwnerAddress:         "0x1000000000000000000000000000000000000001",
		SelectedChainID:      137,
		SelectedTokenAddress: "0x2000000000000000000000000000000000000002",
		ConversionPoints:     points,
	}
}

func fixedPoint(pointID string, amount float64, active bool) models.ConversionPoint {
	return models.ConversionPoint{
		PointID:      pointID,
		PaymentType:  models.PaymentTypeFixedAmount,
		RewardAmount: amount,
		IsActive:     active,
	}
}

func (f *conversionFixture) post(t *testing.T, apiKey, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions?"+query, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *conversionFixture) countLogs(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ConversionLog{}).Count(&n).Error)
	return n
}

func TestConversionLog_FixedAmount(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(fixedPoint("SIGNUP01", 2.5, true)))

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Conversion successful")
	assert.Contains(t, w.Body.String(), fx.referral.ID)

	var entry models.ConversionLog
	require.NoError(t, fx.db.First(&entry).Error)
	assert.Equal(t, 2.5, entry.Amount)
	assert.Equal(t, "SIGNUP01", entry.ConversionPointID)
	assert.False(t, entry.IsPaid)
	assert.Nil(t, entry.UserWalletAddress)
}

func TestConversionLog_ValidationOrder(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(fixedPoint("SIGNUP01", 2.5, true)))

	// Missing API key.
	w := fx.post(t, "", "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "API key is missing")

	// Missing referral id.
	w = fx.post(t, testAPIKey, "conversionId=SIGNUP01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Referral ID is missing")

	// Unknown referral.
	w = fx.post(t, testAPIKey, "referral=nope&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Referral data not found")

	// Missing conversion id.
	w = fx.post(t, testAPIKey, "referral="+fx.referral.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Conversion ID is missing")

	// Wrong API key.
	w = fx.post(t, "wrong-key", "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key or access denied")

	// Unknown conversion point.
	w = fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=NOPE")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Conversion point not found")

	assert.Equal(t, int64(0), fx.countLogs(t))
}

func TestConversionLog_InactivePointAcknowledgesWithoutLogging(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(fixedPoint("SIGNUP01", 2.5, false)))

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Conversion point is inactive")
	assert.Equal(t, int64(0), fx.countLogs(t))
}

func TestConversionLog_RevenueShare(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(models.ConversionPoint{
		PointID:     "SALE0001",
		PaymentType: models.PaymentTypeRevenueShare,
		Percentage:  12.5,
		IsActive:    true,
	}))

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SALE0001&revenue=80.00")
	assert.Equal(t, http.StatusOK, w.Code)

	var entry models.ConversionLog
	require.NoError(t, fx.db.First(&entry).Error)
	assert.Equal(t, 10.0, entry.Amount)

	// Missing, unparseable and non-positive revenue are all rejected.
	for _, q := range []string{"", "&revenue=abc", "&revenue=0", "&revenue=-5"} {
		w = fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SALE0001"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, "revenue query %q", q)
	}
	assert.Equal(t, int64(1), fx.countLogs(t))
}

func TestConversionLog_TieredProgression(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(models.ConversionPoint{
		PointID:     "TIER0001",
		PaymentType: models.PaymentTypeTiered,
		IsActive:    true,
		Tiers: []models.RewardTier{
			{ConversionsRequired: 1, RewardAmount: 1},
			{ConversionsRequired: 3, RewardAmount: 5},
		},
	}))

	want := []float64{1, 1, 5, 5}
	for i, expected := range want {
		w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=TIER0001")
		require.Equal(t, http.StatusOK, w.Code, "conversion %d", i+1)

		var entries []models.ConversionLog
		require.NoError(t, fx.db.Order("created_at ASC").Find(&entries).Error)
		assert.Equal(t, expected, entries[len(entries)-1].Amount, "conversion %d", i+1)
	}
}

func TestConversionLog_TieredBelowFirstTier(t *testing.T) {
	fx := newConversionFixture(t, escrowProject(models.ConversionPoint{
		PointID:     "TIER0001",
		PaymentType: models.PaymentTypeTiered,
		IsActive:    true,
		Tiers:       []models.RewardTier{{ConversionsRequired: 5, RewardAmount: 10}},
	}))

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=TIER0001")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No appropriate tier found")
	assert.Equal(t, int64(0), fx.countLogs(t))
}

func TestConversionLog_ReferralEnabledRequiresUserWallet(t *testing.T) {
	project := escrowProject(fixedPoint("SIGNUP01", 4.0, true))
	project.IsReferralEnabled = true
	fx := newConversionFixture(t, project)

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or missing user wallet address")

	w = fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01&userWalletAddress=garbage")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	user := "0x4000000000000000000000000000000000000004"
	w = fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01&userWalletAddress="+user)
	assert.Equal(t, http.StatusOK, w.Code)

	var entry models.ConversionLog
	require.NoError(t, fx.db.First(&entry).Error)
	require.NotNil(t, entry.UserWalletAddress)
	assert.Equal(t, user, *entry.UserWalletAddress)
	assert.Equal(t, 4.0, entry.Amount, "the split happens at payment time, not here")
}

func TestConversionLog_LegacyProjectPinnedPoint(t *testing.T) {
	project := escrowProject(fixedPoint(legacyConversionID, 1.5, true))
	project.ID = legacyProjectID
	fx := newConversionFixture(t, project)

	// The integrator predating point ids sends no conversionId at all.
	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Conversion successful")

	// Whatever they do send is overridden by the pinned point.
	w = fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SOMETHING")
	assert.Equal(t, http.StatusOK, w.Code)

	var entries []models.ConversionLog
	require.NoError(t, fx.db.Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, legacyConversionID, entry.ConversionPointID)
		assert.Equal(t, 1.5, entry.Amount)
	}
}

func TestConversionLog_DirectPaymentProjectRejected(t *testing.T) {
	project := escrowProject(fixedPoint("SIGNUP01", 1.0, true))
	project.ProjectType = models.ProjectTypeDirectPayment
	fx := newConversionFixture(t, project)

	w := fx.post(t, testAPIKey, "referral="+fx.referral.ID+"&conversionId=SIGNUP01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid project type")
}
