package app

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/pkg/common"
)

// checkLocalUsers provisions the demo operator accounts so a fresh register
// can sign in fully offline.
func (a *Application) checkLocalUsers() {
	defaultUsers := []struct {
		Email  string
		Serial string
		Name   string
	}{
		{Email: "test@mgcaisse.tn", Serial: "MG2024001", Name: "Utilisateur Test"},
		{Email: "demo@mgcaisse.tn", Serial: "MG2024002", Name: "Compte Demo"},
	}

	for _, u := range defaultUsers {
		var operator domain.LocalUser
		err := a.gormDB.Where("email = ?", u.Email).First(&operator).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, herr := bcrypt.GenerateFromPassword([]byte(u.Serial), bcrypt.DefaultCost)
			if herr != nil {
				zap.L().Error("failed to hash default serial", zap.Error(herr))
				continue
			}
			if err := a.gormDB.Create(&domain.LocalUser{
				ID:         common.UUIDint64(),
				Email:      u.Email,
				SerialHash: string(hash),
				Name:       u.Name,
				Status:     common.ENABLED,
				LastLogin:  time.Now(),
			}).Error; err != nil {
				zap.L().Error("failed to create default local user", zap.Error(err))
			} else {
				zap.L().Info("initialized default local user", zap.String("email", u.Email))
			}
		case err != nil:
			zap.L().Error("failed to query local user", zap.Error(err))
		}
	}
}

// checkProducts seeds the demo catalog on first run.
func (a *Application) checkProducts() {
	strptr := func(v string) *string { return &v }
	defaultProducts := []domain.Product{
		{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.500, Stock: 100, MinStock: 10},
		{Name: "Lait", SKU: strptr("LAIT001"), Price: 1.200, Stock: 50, MinStock: 5},
		{Name: "Cafe", SKU: strptr("CAFE001"), Price: 2.500, Stock: 30, MinStock: 5},
		{Name: "Eau 1.5L", SKU: strptr("EAU001"), Price: 0.800, Stock: 80, MinStock: 10},
		{Name: "Biscuits", SKU: strptr("BISC001"), Price: 1.800, Stock: 40, MinStock: 8},
	}

	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("sku = ?", *p.SKU).Count(&count)
		if count == 0 {
			p.ID = common.UUIDint64()
			p.CreatedAt = time.Now()
			p.UpdatedAt = p.CreatedAt
			if err := a.gormDB.Create(&p).Error; err != nil {
				zap.L().Error("failed to create default product", zap.String("name", p.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default product", zap.String("name", p.Name))
			}
		}
	}
}
