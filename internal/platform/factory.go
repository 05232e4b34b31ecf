package platform

import (
	"fmt"

	"github.com/aretw0/capsule/pkg/adapters/temporal"
	"github.com/aretw0/capsule/pkg/classify"
	"github.com/aretw0/capsule/pkg/core"
)

// New creates a capsule service over an initialized store.
//
//	svc, err := capsule.New("./vault", capsule.WithVersioning(false))
func New(uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := parseOptions(opts)
	classifier := o.classifier
	if classifier == nil {
		classifier, err = defaultClassifier(o)
		if err != nil {
			return nil, err
		}
	}

	var svcOpts []core.ServiceOption
	if o.logger != nil {
		svcOpts = append(svcOpts, core.WithServiceLogger(o.logger))
	}
	if o.clock != nil {
		svcOpts = append(svcOpts, core.WithClock(o.clock))
	}
	return core.NewService(repo, classifier, svcOpts...), nil
}

// defaultClassifier builds the keyword classifier over the date extractor
// of the configured locale.
func defaultClassifier(o *options) (core.Classifier, error) {
	locale, _ := o.config["locale"].(string)
	extractor, err := temporal.New(temporal.Config{Locale: locale, PreferFuture: true})
	if err != nil {
		return nil, fmt.Errorf("date extractor: %w", err)
	}
	return classify.New(extractor), nil
}
