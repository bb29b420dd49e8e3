package httpapi

import (
	"strings"

	"github.com/fasthttp/router"
	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Service は従業員 API の HTTP アダプタです。
type Service struct {
	router    *router.Router
	employees employee.UseCase
	log       zerolog.Logger
}

// Deps は Service の依存関係です。
type Deps struct {
	// Employees は従業員ユースケースです。
	Employees employee.UseCase
	// UploadRoot はアーティファクトの保存先ディレクトリです。
	// /uploads 配下の静的配信に使われます。
	UploadRoot string
	Logger     zerolog.Logger
}

// NewService は Service を生成し、ルーティングを設定します。
func NewService(d Deps) *Service {
	s := &Service{
		router:    router.New(),
		employees: d.Employees,
		log:       d.Logger.With().Str("component", "httpapi.Service").Logger(),
	}
	s.mountRoutes(d.UploadRoot)
	return s
}

func (s *Service) mountRoutes(uploadRoot string) {
	s.router.GET("/api/health", s.health)

	s.router.GET("/api/employees", s.listEmployees)
	s.router.GET("/api/employees/search", s.searchEmployees)
	s.router.GET("/api/employees/{id}", s.getEmployee)
	s.router.POST("/api/employees", s.requireUser(s.createEmployee))
	s.router.PUT("/api/employees/{id}", s.requireUser(s.updateEmployee))
	s.router.DELETE("/api/employees/{id}", s.requireUser(s.deleteEmployee))

	if uploadRoot != "" {
		s.router.GET("/uploads/{name}", serveUploads(uploadRoot))
	}
}

// Handler はミドルウェアを適用したルートハンドラを返します。
func (s *Service) Handler() fasthttp.RequestHandler {
	return s.recovery(s.logging(cors(s.router.Handler)))
}

// serveUploads は保存済みアーティファクトを静的配信します。
// ドットで始まる名前は書きかけの一時ファイルを指し得るため拒否されます。
func serveUploads(root string) fasthttp.RequestHandler {
	fs := &fasthttp.FS{
		Root:               root,
		AcceptByteRange:    true,
		PathRewrite:        fasthttp.NewPathPrefixStripper(len("/uploads")),
		PathNotFound:       notFoundHandler,
		GenerateIndexPages: false,
	}
	fileHandler := fs.NewRequestHandler()

	return func(ctx *fasthttp.RequestCtx) {
		name, _ := ctx.UserValue("name").(string)
		if name == "" || strings.HasPrefix(name, ".") {
			notFoundHandler(ctx)
			return
		}
		fileHandler(ctx)
	}
}

func notFoundHandler(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusNotFound, errArtifactNotFound)
}
