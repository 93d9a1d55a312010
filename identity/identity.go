// Package identity makes sure every browser that visits the storefront is tied
// to exactly one backend account, creating an anonymous one on first visit.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/logger"
	"storefront-backend/metrics"
	"storefront-backend/models"
	"storefront-backend/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrProvisioningFailed = errors.New("identity: provisioning failed")
	ErrProfileNotFound    = errors.New("identity: profile not found")
	ErrMissingDevice      = errors.New("identity: device id is required")
)

// Cache maps a browser (device) to the account it was provisioned with.
type Cache interface {
	Lookup(ctx context.Context, deviceID string) (uid string, ok bool, err error)
	// Remember binds deviceID to uid unless it is already bound, and returns
	// the uid the device ends up with.
	Remember(ctx context.Context, deviceID, uid string) (stored string, err error)
}

// Accounts is the authentication service.
type Accounts interface {
	CreateUser(ctx context.Context, email, password, displayName string) (uid string, err error)
	VerifyIDToken(ctx context.Context, idToken string) (uid string, err error)
	DeleteUser(ctx context.Context, uid string) error
}

// Session is the identity a request acts as. It is produced once per device by
// EnsureUser and passed explicitly to everything that needs it.
type Session struct {
	DeviceID string `json:"device_id"`
	UID      string `json:"uid"`
	// Created is true when this call provisioned a new account.
	Created bool `json:"created"`
}

// SignedIn reports whether the session carries an account.
func (s Session) SignedIn() bool {
	return s.UID != ""
}

type Request struct {
	DeviceID string
	// IDToken is an existing Firebase session held by the client, if any.
	IDToken string
}

type Provisioner struct {
	Cache    Cache
	Accounts Accounts
	Store    store.Store
	Log      *logger.Logger
	Metrics  *metrics.Metrics

	// NewID generates the anonymous identity. Defaults to uuid.NewString.
	NewID func() string

	flights singleflight.Group
}

// EnsureUser returns the account for req.DeviceID, provisioning one if the
// device has none yet. Concurrent calls for the same device share one attempt.
func (p *Provisioner) EnsureUser(ctx context.Context, req Request) (Session, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return Session{}, ErrMissingDevice
	}

	ch := p.flights.DoChan(deviceID, func() (any, error) {
		// Detached from the first caller so one cancelled request does not fail
		// the others waiting on the same flight.
		return p.provision(context.WithoutCancel(ctx), deviceID, req.IDToken)
	})

	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil
	}
}

func (p *Provisioner) provision(ctx context.Context, deviceID, idToken string) (Session, error) {
	ctx = p.Log.WithField(ctx, "device_id", deviceID)

	uid, ok, err := p.Cache.Lookup(ctx, deviceID)
	if err != nil {
		p.Log.Error(ctx, "identity cache lookup failed", err)
		return Session{}, fmt.Errorf("%w: cache lookup: %v", ErrProvisioningFailed, err)
	}
	if ok {
		p.Metrics.ObserveProvisioning(metrics.ProvisionCached)
		return Session{DeviceID: deviceID, UID: uid}, nil
	}

	if idToken = strings.TrimSpace(idToken); idToken != "" {
		uid, err := p.Accounts.VerifyIDToken(ctx, idToken)
		if err == nil && uid != "" {
			stored, err := p.Cache.Remember(ctx, deviceID, uid)
			if err != nil {
				p.Log.Error(ctx, "caching adopted session failed", err)
				return Session{}, fmt.Errorf("%w: cache write: %v", ErrProvisioningFailed, err)
			}
			if stored != uid {
				p.Metrics.ObserveProvisioning(metrics.ProvisionCached)
				return Session{DeviceID: deviceID, UID: stored}, nil
			}
			p.Metrics.ObserveProvisioning(metrics.ProvisionAdopted)
			p.Log.Info(p.Log.WithUserID(ctx, uid), "adopted existing session")
			return Session{DeviceID: deviceID, UID: uid}, nil
		}
		// An expired or foreign token is not fatal; fall through to a fresh account.
		p.Log.Warn(ctx, "ignoring unverifiable id token")
	}

	session, err := p.register(ctx, deviceID)
	if err != nil {
		p.Metrics.ObserveProvisioning(metrics.ProvisionFailed)
		p.Log.Error(ctx, "user registration failed", err)
		return Session{}, err
	}
	if !session.Created {
		p.Metrics.ObserveProvisioning(metrics.ProvisionCached)
		p.Log.Info(p.Log.WithUserID(ctx, session.UID), "device was bound by another instance")
		return session, nil
	}
	p.Metrics.ObserveProvisioning(metrics.ProvisionCreated)
	p.Log.Info(p.Log.WithUserID(ctx, session.UID), "user registered")
	return session, nil
}

func (p *Provisioner) register(ctx context.Context, deviceID string) (Session, error) {
	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	id := newID()
	email := id + "@example.com"
	fullName := "User-" + id

	uid, err := p.Accounts.CreateUser(ctx, email, id, fullName)
	if err != nil {
		return Session{}, fmt.Errorf("%w: create account: %v", ErrProvisioningFailed, err)
	}

	profile := models.User{UID: uid, FullName: fullName, Email: email}
	profileID, err := p.Store.Add(ctx, models.UsersCollection, profile.Fields())
	if err != nil {
		p.discard(ctx, uid, "")
		return Session{}, fmt.Errorf("%w: write profile: %v", ErrProvisioningFailed, err)
	}

	stored, err := p.Cache.Remember(ctx, deviceID, uid)
	if err != nil {
		p.discard(ctx, uid, profileID)
		return Session{}, fmt.Errorf("%w: cache write: %v", ErrProvisioningFailed, err)
	}
	if stored != uid {
		// Another instance bound the device first; its account is the one.
		p.discard(ctx, uid, profileID)
		return Session{DeviceID: deviceID, UID: stored}, nil
	}

	return Session{DeviceID: deviceID, UID: uid, Created: true}, nil
}

// discard removes an account, and its profile if one was written, whose
// provisioning did not complete. Best effort.
func (p *Provisioner) discard(ctx context.Context, uid, profileID string) {
	ctx = p.Log.WithUserID(ctx, uid)
	if profileID != "" {
		if err := p.Store.Delete(ctx, models.UsersCollection, profileID); err != nil && !errors.Is(err, store.ErrNotFound) {
			p.Log.Error(ctx, "removing orphaned profile failed", err)
		}
	}
	if err := p.Accounts.DeleteUser(ctx, uid); err != nil {
		p.Log.Error(ctx, "removing half-provisioned account failed", err)
	}
}

// Profile returns the profile document written for uid.
func (p *Provisioner) Profile(ctx context.Context, uid string) (models.User, error) {
	docs, err := p.Store.List(ctx, models.UsersCollection, store.Where(models.FieldUID, uid))
	if err != nil {
		return models.User{}, fmt.Errorf("fetch profile: %w", err)
	}
	if len(docs) == 0 {
		return models.User{}, ErrProfileNotFound
	}
	return models.UserFromDocument(docs[0].Data), nil
}
