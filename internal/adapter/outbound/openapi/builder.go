package openapi

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/toolarr/toolarr/internal/domain"
)

// maxSchemaDepth caps reference expansion when converting OpenAPI schemas.
// Subtrees below the cap are replaced with a truncation marker, which also
// terminates cyclic reference graphs.
const maxSchemaDepth = 8

// fallbackTag is assigned when neither the operation nor its path yields a
// usable category.
const fallbackTag = "general"

// CatalogBuilder implements usecase.CatalogBuilder for OpenAPI documents.
// Build walks every path/operation pair, derives a stable tool name from the
// method and path, flattens parameters and body fields into one input schema,
// and assembles the immutable catalog. No I/O.
type CatalogBuilder struct {
	logger *slog.Logger
}

// NewCatalogBuilder creates a new OpenAPI CatalogBuilder.
func NewCatalogBuilder(logger *slog.Logger) *CatalogBuilder {
	return &CatalogBuilder{
		logger: logger.With("component", "openapi_builder"),
	}
}

// Build converts a parsed OpenAPI document into a catalog. Operations whose
// schemas cannot be converted are skipped with a warning rather than failing
// the whole build; a document yielding zero tools is an error.
func (b *CatalogBuilder) Build(doc domain.APIDocument) (*domain.Catalog, error) {
	log := b.logger.With(slog.String("source", doc.Source))
	log.Info("Building tool catalog from OpenAPI document.")

	parsed, ok := doc.Parsed.(*openapi3.T)
	if !ok || parsed == nil {
		return nil, &domain.SchemaError{Reason: "document does not carry a parsed OpenAPI model"}
	}

	pathMap := parsed.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var descriptors []domain.ToolDescriptor
	seen := make(map[string]string) // tool name -> "METHOD path" that claimed it
	skipped := 0
	for _, path := range paths {
		pathItem := pathMap[path]
		if pathItem == nil {
			continue
		}
		opMap := pathItem.Operations()
		methods := make([]string, 0, len(opMap))
		for m := range opMap {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := opMap[method]
			if op == nil {
				continue
			}
			name := toolName(method, path)
			opLog := log.With(
				slog.String("method", method),
				slog.String("path", path),
				slog.String("tool_name", name))

			if claimedBy, dup := seen[name]; dup {
				opLog.Warn("Skipping operation: derived tool name already taken.",
					slog.String("claimed_by", claimedBy))
				skipped++
				continue
			}

			d, err := b.buildDescriptor(name, method, path, pathItem, op)
			if err != nil {
				opLog.Warn("Skipping operation.", slog.Any("error", err))
				skipped++
				continue
			}
			seen[name] = method + " " + path
			descriptors = append(descriptors, *d)
		}
	}

	if len(descriptors) == 0 {
		return nil, &domain.SchemaError{Reason: fmt.Sprintf("document %s yields no tools", doc.Source)}
	}

	catalog, err := domain.NewCatalog(doc.Source, descriptors)
	if err != nil {
		return nil, err
	}
	log.Info("Finished building tool catalog.",
		slog.Int("tool_count", catalog.Len()),
		slog.Int("skipped_count", skipped))
	return catalog, nil
}

func (b *CatalogBuilder) buildDescriptor(name, method, path string, pathItem *openapi3.PathItem, op *openapi3.Operation) (*domain.ToolDescriptor, error) {
	d := &domain.ToolDescriptor{
		Name:       name,
		Summary:    operationSummary(method, path, op),
		Method:     strings.ToUpper(method),
		Path:       path,
		Tags:       operationTags(path, op),
		Deprecated: op.Deprecated,
	}
	if d.Deprecated {
		// Visible in discovery text, so agents reach for the replacement.
		d.Summary = "Deprecated: " + d.Summary
	}

	props := make(map[string]domain.JSONSchemaProps)
	var required []string
	for _, paramRef := range mergedParameters(pathItem, op) {
		if paramRef == nil || paramRef.Value == nil {
			continue
		}
		param := paramRef.Value

		var loc domain.ParameterLocation
		switch param.In {
		case openapi3.ParameterInPath:
			loc = domain.LocationPath
		case openapi3.ParameterInQuery:
			loc = domain.LocationQuery
		case openapi3.ParameterInHeader:
			loc = domain.LocationHeader
		default:
			// Cookie parameters are not exposed as tool inputs.
			continue
		}

		schema := b.convertSchemaRef(param.Schema, 0)
		p := domain.Parameter{
			Name:        param.Name,
			In:          loc,
			Type:        schema.Type,
			Required:    param.Required || loc == domain.LocationPath,
			Description: param.Description,
			Default:     schema.Default,
		}
		if param.Description != "" && schema.Description == "" {
			schema.Description = param.Description
		}
		if _, dup := props[p.Name]; dup {
			return nil, fmt.Errorf("parameter %q declared more than once", p.Name)
		}
		props[p.Name] = *schema
		d.Parameters = append(d.Parameters, p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	if bodySchema := b.requestBodySchema(op); bodySchema != nil {
		d.RequestBodySchema = bodySchema
		bodyRequired := op.RequestBody.Value.Required

		if bodySchema.Type == "object" && bodySchema.Properties != nil {
			requiredFields := make(map[string]struct{}, len(bodySchema.Required))
			for _, f := range bodySchema.Required {
				requiredFields[f] = struct{}{}
			}
			fields := make([]string, 0, len(bodySchema.Properties))
			for field := range bodySchema.Properties {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				if _, dup := props[field]; dup {
					return nil, fmt.Errorf("body field %q collides with a parameter", field)
				}
				prop := bodySchema.Properties[field]
				_, fieldRequired := requiredFields[field]
				fieldRequired = fieldRequired && bodyRequired
				props[field] = prop
				d.Parameters = append(d.Parameters, domain.Parameter{
					Name:        field,
					In:          domain.LocationBody,
					Type:        prop.Type,
					Required:    fieldRequired,
					Description: prop.Description,
					Default:     prop.Default,
				})
				if fieldRequired {
					required = append(required, field)
				}
			}
		} else {
			// Non-object bodies map onto a single "body" argument.
			if _, dup := props["body"]; dup {
				return nil, fmt.Errorf("cannot map non-object request body: parameter %q already declared", "body")
			}
			props["body"] = *bodySchema
			d.Parameters = append(d.Parameters, domain.Parameter{
				Name:     "body",
				In:       domain.LocationBody,
				Type:     bodySchema.Type,
				Required: bodyRequired,
			})
			if bodyRequired {
				required = append(required, "body")
			}
		}
	}

	sort.Strings(required)
	d.InputSchema = domain.JSONSchemaProps{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	d.ResponseSchema = b.responseSchema(op.Responses)
	return d, nil
}

// mergedParameters joins path-level and operation-level parameters, with the
// operation overriding on (name, location).
func mergedParameters(pathItem *openapi3.PathItem, op *openapi3.Operation) openapi3.Parameters {
	if len(pathItem.Parameters) == 0 {
		return op.Parameters
	}
	type key struct{ name, in string }
	overridden := make(map[key]struct{}, len(op.Parameters))
	for _, ref := range op.Parameters {
		if ref != nil && ref.Value != nil {
			overridden[key{ref.Value.Name, ref.Value.In}] = struct{}{}
		}
	}
	merged := make(openapi3.Parameters, 0, len(pathItem.Parameters)+len(op.Parameters))
	for _, ref := range pathItem.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		if _, ok := overridden[key{ref.Value.Name, ref.Value.In}]; ok {
			continue
		}
		merged = append(merged, ref)
	}
	return append(merged, op.Parameters...)
}

func (b *CatalogBuilder) requestBodySchema(op *openapi3.Operation) *domain.JSONSchemaProps {
	if op.RequestBody == nil || op.RequestBody.Value == nil || op.RequestBody.Value.Content == nil {
		return nil
	}
	jsonContent := op.RequestBody.Value.Content.Get("application/json")
	if jsonContent == nil || jsonContent.Schema == nil || jsonContent.Schema.Value == nil {
		b.logger.Debug("Request body carries no application/json schema, ignoring.")
		return nil
	}
	return b.convertSchemaRef(jsonContent.Schema, 0)
}

// responseSchema picks the 200 or 201 response, then any other 2xx, and
// converts its application/json schema. Nil when the output is opaque.
func (b *CatalogBuilder) responseSchema(responses *openapi3.Responses) *domain.JSONSchemaProps {
	if responses == nil {
		return nil
	}
	respMap := responses.Map()

	var success *openapi3.ResponseRef
	for _, code := range []string{"200", "201"} {
		if ref, ok := respMap[code]; ok {
			success = ref
			break
		}
	}
	if success == nil {
		codes := make([]string, 0, len(respMap))
		for code := range respMap {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			if strings.HasPrefix(code, "2") {
				success = respMap[code]
				break
			}
		}
	}
	if success == nil || success.Value == nil || success.Value.Content == nil {
		return nil
	}

	jsonContent := success.Value.Content.Get("application/json")
	if jsonContent == nil || jsonContent.Schema == nil || jsonContent.Schema.Value == nil {
		return nil
	}
	return b.convertSchemaRef(jsonContent.Schema, 0)
}

// convertSchemaRef maps an openapi3.SchemaRef onto domain.JSONSchemaProps,
// expanding references inline up to maxSchemaDepth.
func (b *CatalogBuilder) convertSchemaRef(ref *openapi3.SchemaRef, depth int) *domain.JSONSchemaProps {
	if depth >= maxSchemaDepth {
		return domain.TruncatedSchema()
	}
	if ref == nil || ref.Value == nil {
		return &domain.JSONSchemaProps{Type: "object", Properties: map[string]domain.JSONSchemaProps{}}
	}
	schema := ref.Value

	var schemaType string
	if schema.Type != nil && len(*schema.Type) > 0 {
		schemaType = (*schema.Type)[0]
	}

	props := &domain.JSONSchemaProps{
		Type:        schemaType,
		Description: schema.Description,
		Format:      schema.Format,
		Enum:        schema.Enum,
		Default:     schema.Default,
		Nullable:    schema.Nullable,
	}

	switch schemaType {
	case "object":
		props.Required = schema.Required
		props.Properties = make(map[string]domain.JSONSchemaProps, len(schema.Properties))
		for name, propRef := range schema.Properties {
			if propRef == nil {
				continue
			}
			props.Properties[name] = *b.convertSchemaRef(propRef, depth+1)
		}
	case "array":
		if schema.Items != nil {
			props.Items = b.convertSchemaRef(schema.Items, depth+1)
		}
	case "string", "number", "integer", "boolean", "":
	default:
		b.logger.Warn("Unsupported schema type, treating as string.", slog.String("schema_type", schemaType))
		props.Type = "string"
	}
	return props
}

// operationSummary picks the discovery text: summary first, then description,
// then a synthesized fallback.
func operationSummary(method, path string, op *openapi3.Operation) string {
	if op.Summary != "" {
		return op.Summary
	}
	if op.Description != "" {
		return op.Description
	}
	return fmt.Sprintf("Executes %s %s", strings.ToUpper(method), path)
}

// operationTags collects the category labels: the operation's declared tags
// plus the first meaningful path segment, normalized. Never empty.
func operationTags(path string, op *openapi3.Operation) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		norm := domain.NormalizeTag(tag)
		if norm == "" {
			return
		}
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		tags = append(tags, norm)
	}

	for _, tag := range op.Tags {
		add(tag)
	}
	for _, segment := range meaningfulSegments(path) {
		if !strings.HasPrefix(segment, "{") {
			add(segment)
			break
		}
	}
	if len(tags) == 0 {
		tags = []string{fallbackTag}
	}
	return tags
}

var versionSegmentRe = regexp.MustCompile(`^v\d+$`)

// meaningfulSegments splits a path and drops the segments that carry no
// domain meaning: the "api" prefix and version markers like v3.
func meaningfulSegments(path string) []string {
	var out []string
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" || strings.EqualFold(segment, "api") || versionSegmentRe.MatchString(strings.ToLower(segment)) {
			continue
		}
		out = append(out, segment)
	}
	return out
}

// toolName derives the stable tool identifier from the method and path alone.
// operationId is deliberately ignored: upstream generators churn those across
// releases, and the agent's learned tool names must survive a version bump.
// Placeholder segments contribute a by_<param> suffix, so GET
// /api/v3/series/{id} becomes get_series_by_id.
func toolName(method, path string) string {
	parts := []string{strings.ToLower(method)}
	for _, segment := range meaningfulSegments(path) {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			param := sanitizeName(segment[1 : len(segment)-1])
			if param != "" {
				parts = append(parts, "by_"+param)
			}
			continue
		}
		if s := sanitizeName(segment); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

// sanitizeName lowercases and maps separators to underscores so names stay
// valid MCP tool identifiers.
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	replacer := strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "_")
	name = replacer.Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}
