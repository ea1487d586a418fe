// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	browsefeature "github.com/jwagner/imagevault/internal/app/features/browse"
	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	foldersfeature "github.com/jwagner/imagevault/internal/app/features/folders"
	healthfeature "github.com/jwagner/imagevault/internal/app/features/health"
	imagesfeature "github.com/jwagner/imagevault/internal/app/features/images"
	loginfeature "github.com/jwagner/imagevault/internal/app/features/login"
	logoutfeature "github.com/jwagner/imagevault/internal/app/features/logout"
	profilefeature "github.com/jwagner/imagevault/internal/app/features/profile"
	registerfeature "github.com/jwagner/imagevault/internal/app/features/register"
	sharesfeature "github.com/jwagner/imagevault/internal/app/features/shares"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/accounts"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/hierarchy"
	"github.com/jwagner/imagevault/internal/app/system/listing"
	"github.com/jwagner/imagevault/internal/app/system/sharing"
	"github.com/jwagner/imagevault/internal/app/system/uploads"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It creates the session manager, wires the
// domain services, and mounts one feature router per URL prefix.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on
	// each request. Renames and account deletions take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Domain services. The hierarchy service is the write path for folders
	// and images; listing is the read path; accounts and sharing sit on top.
	hierSvc := hierarchy.New(deps.MongoDatabase, deps.BlobStore, logger)
	sharingSvc := sharing.New(deps.MongoDatabase, logger)
	listingSvc := listing.New(deps.MongoDatabase, logger)
	accountsSvc := accounts.New(deps.MongoDatabase, hierSvc, sharingSvc, logger)
	assembler := uploads.New(deps.MongoDatabase, deps.BlobStore, hierSvc, appCfg.UploadStagingPath, logger)

	r := chi.NewRouter()

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Account lifecycle
	registerHandler := registerfeature.NewHandler(accountsSvc, errLog)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	loginHandler := loginfeature.NewHandler(accountsSvc, sessionMgr, errLog)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	profileHandler := profilefeature.NewHandler(accountsSvc, sessionMgr, errLog)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Folder tree navigation and management
	browseHandler := browsefeature.NewHandler(listingSvc, errLog)
	r.Mount("/browse", browsefeature.Routes(browseHandler, sessionMgr))

	foldersHandler := foldersfeature.NewHandler(hierSvc, errLog)
	r.Mount("/folders", foldersfeature.Routes(foldersHandler, sessionMgr))

	// Image upload, download, and delete
	imagesHandler := imagesfeature.NewHandler(hierSvc, assembler, deps.BlobStore, errLog, logger)
	r.Mount("/images", imagesfeature.Routes(imagesHandler, sessionMgr))

	// Folder sharing
	sharesHandler := sharesfeature.NewHandler(sharingSvc, errLog)
	r.Mount("/shares", sharesfeature.Routes(sharesHandler, sessionMgr))

	// Image blobs (local storage only). Downloads normally go through
	// /images/{id}/download; this serves the raw blob path directly.
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	return r, nil
}
