package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"location_form/config"
	"location_form/controller"
	"location_form/logger"
	"location_form/metrics"
)

var ErrFormNotFound = errors.New("form not found")

const formKeyPrefix = "form"

// FormStore keeps one Controller per open form. Sessions expire after the
// cache's default TTL without access.
type FormStore struct {
	cache         *cache.Cache
	newController func(id string) *controller.Controller
	log           *zap.SugaredLogger
}

// NewFormStore keeps forms in c. newController builds the controller of the
// form with the given id.
func NewFormStore(c *cache.Cache, newController func(id string) *controller.Controller) *FormStore {
	s := &FormStore{
		cache:         c,
		newController: newController,
		log:           logger.For(logger.ComponentForms),
	}
	c.OnEvicted(func(key string, _ interface{}) {
		metrics.FormClosed()
		s.log.Debugf("Form session %s closed", key)
	})
	return s
}

// Create registers a new, uninitialized form.
func (s *FormStore) Create() (string, *controller.Controller) {
	id := uuid.NewString()
	ctrl := s.newController(id)
	s.cache.SetDefault(config.GetCacheKey(formKeyPrefix, id), ctrl)
	metrics.FormOpened()
	s.log.Debugf("Form session %s opened", id)
	return id, ctrl
}

// Get returns the form and extends its lifetime.
func (s *FormStore) Get(id string) (*controller.Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrFormNotFound
	}
	key := config.GetCacheKey(formKeyPrefix, id)
	v, found := s.cache.Get(key)
	if !found {
		return nil, ErrFormNotFound
	}
	ctrl, ok := v.(*controller.Controller)
	if !ok {
		return nil, ErrFormNotFound
	}
	// Replace refuses a key the janitor evicted since Get, so an expired
	// form is never brought back after OnEvicted has run.
	if err := s.cache.Replace(key, ctrl, cache.DefaultExpiration); err != nil {
		return nil, ErrFormNotFound
	}
	return ctrl, nil
}

func (s *FormStore) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrFormNotFound
	}
	key := config.GetCacheKey(formKeyPrefix, id)
	if _, found := s.cache.Get(key); !found {
		return ErrFormNotFound
	}
	s.cache.Delete(key)
	return nil
}

func (s *FormStore) Count() int {
	return s.cache.ItemCount()
}
