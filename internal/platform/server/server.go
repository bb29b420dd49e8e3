package server

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// アップロード上限 5 MiB + マルチパートのオーバーヘッド分の余裕を持たせる。
const maxRequestBodySize = 8 << 20

// Server は HTTP サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	httpServer *fasthttp.Server
}

// New は指定されたアドレスで待ち受ける HTTP サーバーを構築します。
func New(listenAddr string, handler fasthttp.RequestHandler) *Server {
	return &Server{
		listenAddr: listenAddr,
		httpServer: &fasthttp.Server{
			Handler:            handler,
			Name:               "employee-registry",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       15 * time.Second,
			MaxRequestBodySize: maxRequestBodySize,
		},
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると安全に停止します。
func (s *Server) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe(s.listenAddr)
	}()

	select {
	case <-ctx.Done():
		if err := s.httpServer.Shutdown(); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http on %s: %w", s.listenAddr, err)
		}
		return nil
	}
}
