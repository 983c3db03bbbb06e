package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/promo"
)

const dateLayout = "2006-01-02"

// decodeCoupon parses one coupon export line:
//
//	{"code":"SUMMER10","discount":"10","valid_from":"2025-06-01T00:00:00Z","valid_to":"...","active":true}
//
// discount may be a JSON string or number.
func decodeCoupon(line []byte) (promo.Coupon, error) {
	var c promo.Coupon
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "discount":
			c.Discount, err = decodeDecimal(d)
		case "valid_from":
			c.ValidFrom, err = decodeTime(d, time.RFC3339, time.UTC)
		case "valid_to":
			c.ValidTo, err = decodeTime(d, time.RFC3339, time.UTC)
		case "active":
			c.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return promo.Coupon{}, errors.Wrap(err, "decode coupon")
	}
	if c.Code == "" {
		return promo.Coupon{}, errors.New("decode coupon: code is empty")
	}
	return c, nil
}

// decodeDiscountCode parses one discount-code export line. Dates are
// calendar days read in loc; either discount field may be null.
func decodeDiscountCode(line []byte, loc *time.Location) (promo.DiscountCode, error) {
	var dc promo.DiscountCode
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			dc.Code, err = d.Str()
		case "discount_percentage":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			dc.DiscountPercentage = decimal.NewNullDecimal(v)
		case "discount_amount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v int64
			v, err = d.Int64()
			m := money.Money(v)
			dc.DiscountAmount = &m
		case "start_date":
			dc.StartDate, err = decodeTime(d, dateLayout, loc)
		case "end_date":
			dc.EndDate, err = decodeTime(d, dateLayout, loc)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return promo.DiscountCode{}, errors.Wrap(err, "decode discount code")
	}
	if dc.Code == "" {
		return promo.DiscountCode{}, errors.New("decode discount code: code is empty")
	}
	return dc, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.New("expected number or string")
	}
}

func decodeTime(d *jx.Decoder, layout string, loc *time.Location) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(layout, s, loc)
}
