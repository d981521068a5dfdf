package parser

import (
	"encoding/json"
	"strconv"

	"github.com/aluiziolira/go-scrape-deals/models"
)

// Options controls how raw items are flattened.
type Options struct {
	// ImageBaseURL is prefixed to NewImage.ImageName.
	ImageBaseURL string
	// KeepZeroValues keeps numeric zero and false instead of omitting them.
	KeepZeroValues bool
}

type fieldPath struct {
	parent string
	child  string // empty for top-level values
	output string
}

var fieldPaths = []fieldPath{
	{parent: "Description", child: "Title", output: "product_title"},
	{parent: "Description", child: "LineDescription", output: "line_description"},
	{parent: "Description", child: "BulletDescription", output: "bullet_description"},
	{parent: "FinalPrice", output: "product_final_price"},
	{parent: "Review", child: "Rating", output: "product_rating"},
	{parent: "Seller", child: "SellerName", output: "product_seller_name"},
}

// ExtractProducts flattens items in order. The result always has one record
// per input item, possibly empty.
func ExtractProducts(items []models.RawItem, opts Options) []models.Product {
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		products = append(products, ExtractProduct(item, opts))
	}
	return products
}

// ExtractProduct flattens a single raw item.
func ExtractProduct(item models.RawItem, opts Options) models.Product {
	product := models.Product{}

	for _, path := range fieldPaths {
		value, ok := lookup(item, path.parent, path.child, opts)
		if !ok {
			continue
		}
		product[path.output] = value
	}

	if name, ok := lookup(item, "NewImage", "ImageName", opts); ok {
		product["product_image_url"] = opts.ImageBaseURL + name
	}

	return product
}

func lookup(item models.RawItem, parent, child string, opts Options) (string, bool) {
	value, ok := item[parent]
	if !ok || !present(value, opts) {
		return "", false
	}
	if child == "" {
		return render(value), true
	}

	nested, ok := asObject(value)
	if !ok {
		return "", false
	}
	value, ok = nested[child]
	if !ok || !present(value, opts) {
		return "", false
	}
	return render(value), true
}

// present reports whether v counts as a value. Empty strings, empty
// containers, and null are always absent; zero and false are absent unless
// opts.KeepZeroValues is set.
func present(v any, opts Options) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val || opts.KeepZeroValues
	case json.Number:
		if opts.KeepZeroValues {
			return true
		}
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0 || opts.KeepZeroValues
	case int:
		return val != 0 || opts.KeepZeroValues
	case map[string]any:
		return len(val) > 0
	case models.RawItem:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

func asObject(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case models.RawItem:
		return val, true
	default:
		return nil, false
	}
}

func render(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// MissingFields lists the fields that p does not carry, in fields order.
func MissingFields(p models.Product, fields []string) []string {
	var missing []string
	for _, field := range fields {
		if _, ok := p[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
