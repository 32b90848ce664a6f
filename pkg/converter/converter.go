// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// TypeConverter handles coercion of raw input cells and mapping of dataset columns to Postgres
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for cell conversion
type TypeConverterConfig struct {
	// Strings that stand for a missing value
	NATokens []string
	// Whether to treat empty strings as NA
	EmptyStringAsNull bool
	// Whether to trim whitespace around string cells
	TrimSpaces bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		NATokens:          []string{"-99", "-999", "NA", "NaN", "nan", "null", "NULL"},
		EmptyStringAsNull: true,
		TrimSpaces:        true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// IsNA reports whether a cell is a missing value
func (c *TypeConverter) IsNA(value interface{}) bool {
	if isNull(value) {
		return true
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false
	}

	if c.config.TrimSpaces {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return c.config.EmptyStringAsNull
	}
	for _, token := range c.config.NATokens {
		if s == token {
			return true
		}
	}
	return false
}

// Value converts a cell to a numeric Value, mapping NA tokens to NA
func (c *TypeConverter) Value(value interface{}) (model.Value, error) {
	if c.IsNA(value) {
		return model.NA(), nil
	}
	f, err := toFloat(value)
	if err != nil {
		return model.NA(), err
	}
	return model.Some(f), nil
}

// Int converts a cell to an integer; ok is false for NA cells
func (c *TypeConverter) Int(value interface{}) (n int, ok bool, err error) {
	if c.IsNA(value) {
		return 0, false, nil
	}
	i, err := toInt(value)
	if err != nil {
		return 0, false, err
	}
	return int(i), true, nil
}

// String converts a cell to a string, returning "" for NA cells
func (c *TypeConverter) String(value interface{}) string {
	if value == nil {
		return ""
	}
	s := toString(value)
	if c.config.TrimSpaces {
		s = strings.TrimSpace(s)
	}
	return s
}

// MapTypeToPostgres converts a logical dataset column type to PostgreSQL
func (c *TypeConverter) MapTypeToPostgres(dataType string) (string, error) {
	switch strings.ToLower(dataType) {
	case "int", "integer":
		return "INTEGER", nil
	case "float", "double":
		return "DOUBLE PRECISION", nil
	case "bool", "boolean":
		return "BOOLEAN", nil
	case "text", "string", "":
		return "TEXT", nil
	default:
		c.logger.Warn("Unknown column type encountered",
			zap.String("dataType", dataType))
		return "TEXT", fmt.Errorf("unknown column type: %s (mapped to TEXT as fallback)", dataType)
	}
}

// GenerateColumnDefinitions creates PostgreSQL column definitions
func (c *TypeConverter) GenerateColumnDefinitions(metadata *model.TableMetadata) ([]string, error) {
	definitions := make([]string, 0, len(metadata.Columns))

	for _, col := range metadata.Columns {
		pgType := col.PgType
		if pgType == "" {
			var err error
			pgType, err = c.MapTypeToPostgres(col.DataType)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
		}

		nullability := "NULL"
		if col.IsPrimaryKey || !col.Nullable {
			nullability = "NOT NULL"
		}

		def := fmt.Sprintf("%s %s %s",
			pq.QuoteIdentifier(col.Name),
			pgType,
			nullability)

		definitions = append(definitions, def)
	}

	return definitions, nil
}
