// Copyright 2022 bytetrade
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apiserver

import (
	"context"
	"errors"
	"net/http"

	"purchasekit/internal/catalog"
	"purchasekit/internal/coordinator"
	"purchasekit/internal/platform"
	"purchasekit/internal/queue"
	"purchasekit/internal/receipt"
	"purchasekit/internal/settings"
	"purchasekit/internal/statestore"
	"purchasekit/internal/types"
	servicev1 "purchasekit/pkg/apiserver/service/v1"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/golang/glog"
)

type APIServer struct {
	Server *http.Server

	// RESTful Server
	container *restful.Container

	cfg         *settings.Config
	queue       queue.PaymentQueue
	store       *statestore.Store
	coordinator *coordinator.Coordinator

	cancelRun context.CancelFunc
}

func New() (*APIServer, error) {
	cfg, err := settings.Load()
	if err != nil {
		return nil, err
	}

	as := &APIServer{cfg: cfg}

	server := &http.Server{
		Addr: cfg.ListenAddress,
	}

	as.Server = server
	return as, nil
}

func (s *APIServer) PrepareRun() error {
	if err := s.buildCoordinator(); err != nil {
		return err
	}

	s.container = restful.NewContainer()
	s.container.Filter(logRequestAndResponse)
	s.container.Router(restful.CurlyRouter{})
	s.container.RecoverHandler(func(panicReason interface{}, httpWriter http.ResponseWriter) {
		logStackOnRecover(panicReason, httpWriter)
	})

	s.installModuleAPI()
	s.installAPIDocs()

	for _, ws := range s.container.RegisteredWebServices() {
		glog.Infof("registered module: %s", ws.RootPath())
	}

	s.Server.Handler = s.container

	return nil
}

func (s *APIServer) buildCoordinator() error {
	token := platform.NewClient(s.cfg.Platform.Server, s.cfg.Platform.AppKey, s.cfg.Platform.AppSecret)

	receipts, err := receiptProvider(s.cfg, token)
	if err != nil {
		return err
	}

	q, err := queue.NewNATSQueue(s.cfg.NATS)
	if err != nil {
		return err
	}
	s.queue = q

	opts := coordinator.Options{
		Queue:               s.queue,
		Catalog:             catalog.NewHTTPClient(s.cfg.CatalogURL, token),
		Receipts:            receipts,
		AcceptStorePayments: s.cfg.AcceptStorePayments,
		Listeners:           logListeners(),
	}

	if s.cfg.Redis.Enabled {
		store, err := statestore.New(s.cfg.Redis)
		if err != nil {
			glog.Fatalf("state store init err:%s", err.Error())
		}
		s.store = store
		opts.StateStore = store
	}

	s.coordinator = coordinator.New(opts)

	return nil
}

func receiptProvider(cfg *settings.Config, token *platform.Client) (receipt.Provider, error) {
	if cfg.ReceiptFile != "" {
		return receipt.NewFileProvider(cfg.ReceiptFile), nil
	}
	if cfg.ReceiptURL != "" {
		return receipt.NewHTTPProvider(cfg.ReceiptURL, token), nil
	}
	return nil, errors.New("either receipt_url or receipt_file must be configured")
}

// logListeners reports coordinator callbacks in the server log. Terminal
// results for API-initiated purchases also flow back through their Outcome
// handles; these listeners are the only channel for platform-initiated ones.
func logListeners() coordinator.Listeners {
	return coordinator.Listeners{
		OnProductsResolved: func(result types.ResolveResult) {
			glog.Infof("catalog resolved %d products, %d unresolved", len(result.Resolved), len(result.Unresolved))
		},
		OnCatalogFailure: func(err *types.PurchaseError) {
			glog.Warningf("catalog resolution failed: %s", err.Error())
		},
		OnProgress: func(notice coordinator.ProgressNotice) {
			glog.Infof("purchase progress %s for %s", notice.Kind, notice.ProductID)
		},
		OnOutcome: func(result coordinator.PurchaseResult) {
			if result.Err != nil {
				glog.Warningf("purchase of %s ended with error: %s", result.ProductID, result.Err.Error())
				return
			}
			glog.Infof("purchase of %s completed", result.ProductID)
		},
		OnRestored: func(result coordinator.PurchaseResult) {
			glog.Infof("restored purchase of %s", result.ProductID)
		},
		OnRestoreFinished: func(err *types.PurchaseError) {
			if err != nil {
				glog.Warningf("restoration failed: %s", err.Error())
				return
			}
			glog.Info("restoration finished")
		},
		OnStorePayment: func(payment types.Payment, product types.ProductDescriptor) {
			glog.Infof("store payment prompt for %s", payment.ProductID)
		},
	}
}

func (s *APIServer) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	go s.coordinator.Run(ctx)

	return s.Server.ListenAndServe()
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)

	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.coordinator.Close()
	if s.store != nil {
		_ = s.store.Close()
	}

	return err
}

func (s *APIServer) installAPIDocs() {
	config := restfulspec.Config{
		WebServices:                   s.container.RegisteredWebServices(), // you control what services are visible
		APIPath:                       "/purchasekit/v1/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject}
	s.container.Add(restfulspec.NewOpenAPIService(config))

	cors := restful.CrossOriginResourceSharing{
		AllowedHeaders: []string{"Content-Type", "Accept"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		CookiesAllowed: false,
		Container:      restful.DefaultContainer}
	s.container.Filter(cors.Filter)
}

func (s *APIServer) installModuleAPI() {
	_ = servicev1.AddToContainer(s.container, s.coordinator, s.queue, s.store)
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "PurchaseKit",
			Description: "Purchase Coordinator Service",
			Contact: &spec.ContactInfo{
				ContactInfoProps: spec.ContactInfoProps{
					Name:  "bytetrade",
					Email: "dev@bytetrade.io",
					URL:   "http://bytetrade.io",
				},
			},
			License: &spec.License{
				LicenseProps: spec.LicenseProps{
					Name: "Apache License 2.0",
					URL:  "http://www.apache.org/licenses/LICENSE-2.0",
				},
			},
			Version: "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{{TagProps: spec.TagProps{
		Name:        "PurchaseKit",
		Description: "In-App Purchase Coordination"}}}
	swo.Schemes = []string{"http", "https"}
}
