package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/controllers"
	"github.com/ManuelReschke/MoviAPI/app/repository"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/metrics/counter"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies is everything the routes need, built once in main.
// Cache, Counter and Jobs may be nil.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    *redis.Client
	Sessions *session.Store
	Billing  *billing.Service
	Verifier *billing.SignatureVerifier
	Counter  *counter.Counter
	Jobs     controllers.JobEnqueuer
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	repos := repository.NewRepositories(deps.DB)
	billingController := controllers.NewBillingController(controllers.BillingDeps{
		Service:  deps.Billing,
		Verifier: deps.Verifier,
		Counter:  deps.Counter,
		Jobs:     deps.Jobs,
		Cache:    deps.Cache,
	})
	accountController := controllers.NewAccountController(repos, deps.Billing)
	authController := controllers.NewAuthController(repos.User, deps.Sessions)

	// The webhook router goes first so processor deliveries never pass
	// through the session middleware that HttpRouter installs.
	setup(app,
		NewWebhookRouter(billingController),
		NewHttpRouter(deps.Config.App, deps.Sessions, authController, billingController),
		NewApiRouter(repos, billingController, accountController),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
