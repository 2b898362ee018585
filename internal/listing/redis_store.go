package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/ariefcatur/go-yard-listings/internal/redisx"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each listing in a hash and a sorted set for ranked browse.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func listingKey(carID string) string { return fmt.Sprintf(redisx.KeyListing, carID) }

func (s *RedisStore) Upsert(ctx context.Context, l Listing) error {
	images, err := json.Marshal(l.Images)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err, "encode images")
	}
	promo, err := json.Marshal(l.Promotion)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err, "encode promotion")
	}
	fields := map[string]any{
		"car_id":      l.CarID,
		"owner_id":    l.OwnerID,
		"brand":       l.Brand,
		"model":       l.Model,
		"year":        l.Year,
		"mileage":     l.Mileage,
		"price_cents": l.PriceCents,
		"images":      string(images),
		"city":        l.City,
		"description": l.Description,
		"promotion":   string(promo),
		"tier":        l.Tier.String(),
		"updated_at":  l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, listingKey(l.CarID), fields)
		p.ZAdd(ctx, redisx.KeyListingRank, redis.Z{Score: rankScore(l), Member: l.CarID})
		return nil
	})
	return redisErr(err, "upsert listing")
}

func (s *RedisStore) Delete(ctx context.Context, carID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, listingKey(carID))
		p.ZRem(ctx, redisx.KeyListingRank, carID)
		return nil
	})
	return redisErr(err, "delete listing")
}

func (s *RedisStore) Get(ctx context.Context, carID string) (*Listing, error) {
	h, err := s.rdb.HGetAll(ctx, listingKey(carID)).Result()
	if err != nil {
		return nil, redisErr(err, "get listing")
	}
	if len(h) == 0 {
		return nil, apperr.New(apperr.ErrNotFound, "listing %s", carID)
	}
	return decodeListing(h)
}

func (s *RedisStore) ListRanked(ctx context.Context, offset, limit int) ([]Listing, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.rdb.ZRevRange(ctx, redisx.KeyListingRank, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, redisErr(err, "read rank index")
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, listingKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, redisErr(err, "read listings")
	}
	out := make([]Listing, 0, len(ids))
	for _, c := range cmds {
		h := c.Val()
		if len(h) == 0 {
			continue // deleted between the two reads
		}
		l, err := decodeListing(h)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}

// ListKeys pages through the rank index, oldest score first.
func (s *RedisStore) ListKeys(ctx context.Context, offset, limit int) ([]yard.Key, error) {
	ids, err := s.rdb.ZRange(ctx, redisx.KeyListingRank, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, redisErr(err, "read rank index")
	}
	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGet(ctx, listingKey(id), "owner_id")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, redisErr(err, "read listing owners")
	}
	out := make([]yard.Key, 0, len(ids))
	for i, id := range ids {
		// an index entry without a document still needs a sync, owner unknown
		out = append(out, yard.Key{OwnerID: cmds[i].Val(), CarID: id})
	}
	return out, nil
}

func decodeListing(h map[string]string) (*Listing, error) {
	l := Listing{
		CarID:       h["car_id"],
		OwnerID:     h["owner_id"],
		Brand:       h["brand"],
		Model:       h["model"],
		City:        h["city"],
		Description: h["description"],
	}
	var err error
	if l.Year, err = atoi(h["year"]); err != nil {
		return nil, err
	}
	if l.Mileage, err = atoi(h["mileage"]); err != nil {
		return nil, err
	}
	if v := h["price_cents"]; v != "" {
		if l.PriceCents, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, err, "decode price")
		}
	}
	if v := h["images"]; v != "" {
		if err := json.Unmarshal([]byte(v), &l.Images); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, err, "decode images")
		}
	}
	if v := h["promotion"]; v != "" {
		if err := json.Unmarshal([]byte(v), &l.Promotion); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, err, "decode promotion")
		}
	}
	if v := h["tier"]; v != "" {
		if l.Tier, err = promotion.ParseTier(v); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, err, "decode tier")
		}
	}
	if v := h["updated_at"]; v != "" {
		if l.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, err, "decode updated_at")
		}
	}
	return &l, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrInternal, err, "decode number")
	}
	return n, nil
}

// redisErr treats every redis failure other than a decoding bug as
// store unavailability.
func redisErr(err error, op string) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return apperr.Wrap(apperr.ErrTransient, errors.WithStack(err), op)
}
