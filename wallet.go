package passbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/walletobjects/v1"
)

// WalletPersister stores classes and objects through the wallet objects
// API. Existing resources are updated in place.
type WalletPersister struct {
	svc *walletobjects.Service
}

// NewWalletPersister builds a persister authenticated by provider. Extra
// client options are applied after the token source.
func NewWalletPersister(ctx context.Context, provider *CredentialProvider, opts ...option.ClientOption) (*WalletPersister, error) {
	var clientOpts []option.ClientOption
	if provider != nil {
		ts, err := provider.TokenSource(ctx, walletobjects.WalletObjectIssuerScope)
		if err != nil {
			return nil, fmt.Errorf("wallet credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := walletobjects.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}
	return &WalletPersister{svc: svc}, nil
}

// PersistClass inserts the class, or updates it when it already exists.
func (w *WalletPersister) PersistClass(ctx context.Context, prefix string, class json.RawMessage) error {
	s := w.svc
	switch prefix {
	case "generic":
		return upsert(class,
			func(v *walletobjects.GenericClass) error {
				_, err := s.Genericclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.GenericClass) error {
				_, err := s.Genericclass.Update(id, v).Context(ctx).Do()
				return err
			})
	case "eventTicket":
		return upsert(class,
			func(v *walletobjects.EventTicketClass) error {
				_, err := s.Eventticketclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.EventTicketClass) error {
				_, err := s.Eventticketclass.Update(id, v).Context(ctx).Do()
				return err
			})
	case "offer":
		return upsert(class,
			func(v *walletobjects.OfferClass) error {
				_, err := s.Offerclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.OfferClass) error {
				_, err := s.Offerclass.Update(id, v).Context(ctx).Do()
				return err
			})
	case "loyalty":
		return upsert(class,
			func(v *walletobjects.LoyaltyClass) error {
				_, err := s.Loyaltyclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.LoyaltyClass) error {
				_, err := s.Loyaltyclass.Update(id, v).Context(ctx).Do()
				return err
			})
	case "flight":
		return upsert(class,
			func(v *walletobjects.FlightClass) error {
				_, err := s.Flightclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.FlightClass) error {
				_, err := s.Flightclass.Update(id, v).Context(ctx).Do()
				return err
			})
	case "transit":
		return upsert(class,
			func(v *walletobjects.TransitClass) error {
				_, err := s.Transitclass.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.TransitClass) error {
				_, err := s.Transitclass.Update(id, v).Context(ctx).Do()
				return err
			})
	}
	return newError(ErrCodeUnsupportedVariant, fmt.Errorf("prefix %q", prefix))
}

// PersistObject inserts the object, or updates it when it already exists.
func (w *WalletPersister) PersistObject(ctx context.Context, prefix string, object json.RawMessage) error {
	s := w.svc
	switch prefix {
	case "generic":
		return upsert(object,
			func(v *walletobjects.GenericObject) error {
				_, err := s.Genericobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.GenericObject) error {
				_, err := s.Genericobject.Update(id, v).Context(ctx).Do()
				return err
			})
	case "eventTicket":
		return upsert(object,
			func(v *walletobjects.EventTicketObject) error {
				_, err := s.Eventticketobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.EventTicketObject) error {
				_, err := s.Eventticketobject.Update(id, v).Context(ctx).Do()
				return err
			})
	case "offer":
		return upsert(object,
			func(v *walletobjects.OfferObject) error {
				_, err := s.Offerobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.OfferObject) error {
				_, err := s.Offerobject.Update(id, v).Context(ctx).Do()
				return err
			})
	case "loyalty":
		return upsert(object,
			func(v *walletobjects.LoyaltyObject) error {
				_, err := s.Loyaltyobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.LoyaltyObject) error {
				_, err := s.Loyaltyobject.Update(id, v).Context(ctx).Do()
				return err
			})
	case "flight":
		return upsert(object,
			func(v *walletobjects.FlightObject) error {
				_, err := s.Flightobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.FlightObject) error {
				_, err := s.Flightobject.Update(id, v).Context(ctx).Do()
				return err
			})
	case "transit":
		return upsert(object,
			func(v *walletobjects.TransitObject) error {
				_, err := s.Transitobject.Insert(v).Context(ctx).Do()
				return err
			},
			func(id string, v *walletobjects.TransitObject) error {
				_, err := s.Transitobject.Update(id, v).Context(ctx).Do()
				return err
			})
	}
	return newError(ErrCodeUnsupportedVariant, fmt.Errorf("prefix %q", prefix))
}

// upsert decodes raw into the API type, inserts it, and falls back to an
// update when the resource already exists.
func upsert[T any](raw json.RawMessage, insert func(*T) error, update func(string, *T) error) error {
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return fmt.Errorf("decode resource id: %w", err)
	}
	if ref.ID == "" {
		return errors.New("resource has no id")
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode resource %s: %w", ref.ID, err)
	}
	err := insert(v)
	if !isConflict(err) {
		return err
	}
	return update(ref.ID, v)
}

func isConflict(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
