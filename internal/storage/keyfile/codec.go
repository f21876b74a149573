package keyfile

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/keygate/internal/domain/apikey"
)

// On-disk layout:
//
//	{"keys":[{"key":"…","createdAt":"…","expiresAt":"…",
//	  "rateLimit":{"requests":100,"duration":60},
//	  "bucket":{"tokens":"99","lastRefillAt":"…"}}]}
//
// The rateLimit field names match files written before bucket state was
// persisted; records without a bucket load with a full one.

func encodeRecords(records []apikey.Record) []byte {
	var e jx.Encoder
	e.SetIdent(2)
	e.ObjStart()
	e.FieldStart("keys")
	e.ArrStart()
	for _, r := range records {
		encodeRecord(&e, r)
	}
	e.ArrEnd()
	e.ObjEnd()
	return append(e.Bytes(), '\n')
}

func encodeRecord(e *jx.Encoder, r apikey.Record) {
	e.ObjStart()
	e.FieldStart("key")
	e.Str(r.Secret)
	e.FieldStart("createdAt")
	e.Str(r.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("expiresAt")
	e.Str(r.ExpiresAt.UTC().Format(time.RFC3339Nano))

	e.FieldStart("rateLimit")
	e.ObjStart()
	e.FieldStart("requests")
	e.Int(r.Quota.Limit)
	e.FieldStart("duration")
	e.Int(r.Quota.WindowSeconds)
	e.ObjEnd()

	e.FieldStart("bucket")
	e.ObjStart()
	e.FieldStart("tokens")
	e.Str(r.Bucket.Tokens.String())
	e.FieldStart("lastRefillAt")
	e.Str(r.Bucket.LastRefillAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()

	e.ObjEnd()
}

func decodeRecords(data []byte) ([]apikey.Record, error) {
	var records []apikey.Record
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "keys" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			r, err := decodeRecord(d)
			if err != nil {
				return errors.Wrapf(err, "record %d", len(records))
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func decodeRecord(d *jx.Decoder) (apikey.Record, error) {
	var (
		r         apikey.Record
		hasBucket bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "key":
			r.Secret, err = d.Str()
		case "createdAt":
			r.CreatedAt, err = decodeTime(d)
		case "expiresAt":
			r.ExpiresAt, err = decodeTime(d)
		case "rateLimit":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "requests":
					r.Quota.Limit, err = d.Int()
				case "duration":
					r.Quota.WindowSeconds, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			})
		case "bucket":
			hasBucket = true
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "tokens":
					r.Bucket.Tokens, err = decodeDecimal(d)
				case "lastRefillAt":
					r.Bucket.LastRefillAt, err = decodeTime(d)
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return apikey.Record{}, err
	}
	if r.Secret == "" {
		return apikey.Record{}, errors.New("empty key")
	}
	if !hasBucket {
		r.Bucket = apikey.FullBucket(r.Quota, r.CreatedAt)
	}
	return r, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}
