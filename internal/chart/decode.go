// Package chart decodes the JSON payload of telegram statistics graphs.
package chart

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-faster/jx"

	"github.com/blockedby/tgstats/internal/models"
)

const defaultTimeStep = int64(24 * 60 * 60 * 1000)

// ErrNoXColumn is returned when the payload has no "x" column.
var ErrNoXColumn = errors.New("chart has no x column")

type column struct {
	id     string
	values []int64
}

// Decode parses a stats graph payload into a chart.
func Decode(data []byte) (models.StatisticalChart, error) {
	var (
		columns []column
		types   = map[string]string{}
		names   = map[string]string{}
		colors  = map[string]string{}
		hidden  = map[string]bool{}
		zoom    []int64
		out     models.StatisticalChart
	)

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "columns":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeColumn(d)
				if err != nil {
					return err
				}
				columns = append(columns, c)
				return nil
			})
		case "types":
			return decodeStrings(d, types)
		case "names":
			return decodeStrings(d, names)
		case "colors":
			return decodeStrings(d, colors)
		case "hidden":
			return d.Arr(func(d *jx.Decoder) error {
				id, err := d.Str()
				if err != nil {
					return err
				}
				hidden[id] = true
				return nil
			})
		case "subchart":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "defaultZoom" {
					return d.Skip()
				}
				return d.Arr(func(d *jx.Decoder) error {
					v, err := d.Float64()
					if err != nil {
						return err
					}
					zoom = append(zoom, int64(v))
					return nil
				})
			})
		case "percentage":
			v, err := decodeFlag(d)
			out.Percentage = v
			return err
		case "stacked":
			v, err := decodeFlag(d)
			out.Stacked = v
			return err
		case "y_scaled":
			v, err := decodeFlag(d)
			out.YScaled = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return models.StatisticalChart{}, fmt.Errorf("decode chart: %w", err)
	}

	out.MinValue = math.MaxInt64
	out.MaxValue = math.MinInt64
	for _, c := range columns {
		if c.id == "x" || types[c.id] == "x" {
			out.X = c.values
			continue
		}
		line := models.ChartLine{
			ID:              c.id,
			Name:            names[c.id],
			Type:            models.ChartLineType(types[c.id]),
			Values:          c.values,
			IsHiddenOnStart: hidden[c.id],
		}
		line.ColorKey, line.Color = splitColor(colors[c.id])
		line.MinValue, line.MaxValue = bounds(c.values)
		out.MinValue = min(out.MinValue, line.MinValue)
		out.MaxValue = max(out.MaxValue, line.MaxValue)
		out.Lines = append(out.Lines, line)
	}
	if out.X == nil {
		return models.StatisticalChart{}, ErrNoXColumn
	}
	if len(out.Lines) == 0 {
		out.MinValue, out.MaxValue = 0, 0
	}
	for _, line := range out.Lines {
		if len(line.Values) != len(out.X) {
			return models.StatisticalChart{}, fmt.Errorf("column %s has %d values, x has %d", line.ID, len(line.Values), len(out.X))
		}
	}

	out.TimeStep = defaultTimeStep
	if len(out.X) > 1 {
		out.TimeStep = out.X[1] - out.X[0]
	}
	if len(zoom) == 2 {
		out.HasZoom = true
		out.DefaultZoomX = [2]int64{zoom[0], zoom[1]}
	}

	return out, nil
}

// decodeColumn reads ["id", v0, v1, ...].
func decodeColumn(d *jx.Decoder) (column, error) {
	var c column
	first := true
	err := d.Arr(func(d *jx.Decoder) error {
		if first {
			first = false
			id, err := d.Str()
			c.id = id
			return err
		}
		v, err := d.Float64()
		if err != nil {
			return err
		}
		c.values = append(c.values, int64(v))
		return nil
	})
	if err != nil {
		return column{}, err
	}
	if c.id == "" {
		return column{}, errors.New("column without id")
	}
	return c, nil
}

func decodeStrings(d *jx.Decoder, into map[string]string) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		into[key] = v
		return nil
	})
}

func decodeFlag(d *jx.Decoder) (bool, error) {
	switch d.Next() {
	case jx.Bool:
		return d.Bool()
	case jx.Number:
		v, err := d.Float64()
		return v != 0, err
	default:
		return false, d.Skip()
	}
}

// splitColor splits "KEY#RRGGBB" into its key and color parts.
func splitColor(raw string) (key, color string) {
	i := strings.LastIndexByte(raw, '#')
	if i < 0 {
		return "", raw
	}
	return raw[:i], raw[i:]
}

func bounds(values []int64) (lo, hi int64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
