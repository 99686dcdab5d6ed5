package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
	"github.com/billing-resolver/internal/matcher"
	"github.com/billing-resolver/internal/normalizer"
	"github.com/billing-resolver/internal/parser"
	"github.com/billing-resolver/internal/search"
)

// suggestionScoreToPass is the overlap percentage an organization
// property has to clear before an address is treated as a respelling of
// it in the standard flow. Strict on purpose: only a near-complete,
// unambiguous match may divert a creation.
const suggestionScoreToPass = 95

// ResolverConfig tunes one resolver instance.
type ResolverConfig struct {
	// Minimum token-overlap percentage an organization-property match
	// must exceed in organization-only mode.
	OrgMatchScore float64
	// Chunk size for loading the organization property portfolio.
	PropertyChunkSize int
}

// ResolverParams identifies the billing upload a resolver serves.
type ResolverParams struct {
	TIN              string
	OrganizationID   string
	ContextID        string
	AddressTransform []models.TransformRule
}

// BillingPropertyResolver maps raw billing addresses onto billing
// properties for one organization/integration context. An instance is
// initialized once and then drives one Resolve call per address;
// lookups are amortized across calls through the session cache.
type BillingPropertyResolver struct {
	logger *zap.Logger
	cfg    ResolverConfig

	tin            string
	organizationID string
	contextID      string

	transformer *normalizer.AddressTransform
	parser      *parser.AddressParser
	finder      *matcher.PropertyFinder
	cache       *AddressSearchCache

	searchClient      search.AddressClient
	properties        PropertyStore
	billingProperties BillingPropertyStore
	settings          SettingsStore

	organizationOnly bool
	portfolioLoaded  bool
}

func NewBillingPropertyResolver(
	searchClient search.AddressClient,
	properties PropertyStore,
	billingProperties BillingPropertyStore,
	settings SettingsStore,
	cfg ResolverConfig,
	logger *zap.Logger,
) *BillingPropertyResolver {
	if cfg.OrgMatchScore <= 0 {
		cfg.OrgMatchScore = 1
	}
	if cfg.PropertyChunkSize <= 0 {
		cfg.PropertyChunkSize = 100
	}
	return &BillingPropertyResolver{
		logger:            logger,
		cfg:               cfg,
		transformer:       normalizer.NewAddressTransform(),
		parser:            parser.NewAddressParser(),
		finder:            matcher.NewPropertyFinder(logger),
		searchClient:      searchClient,
		properties:        properties,
		billingProperties: billingProperties,
		settings:          settings,
	}
}

// Init loads organization settings, compiles the merged transform rule
// set and, in organization-only mode, indexes the property portfolio.
// A malformed rule set fails here, before any address is processed.
func (r *BillingPropertyResolver) Init(ctx context.Context, params ResolverParams) error {
	r.tin = strings.TrimSpace(params.TIN)
	r.organizationID = params.OrganizationID
	r.contextID = params.ContextID
	r.cache = NewAddressSearchCache(r.tin)

	stored, err := r.settings.OrganizationSettings(ctx, params.OrganizationID)
	if err != nil {
		return fmt.Errorf("resolver init: %w", err)
	}
	r.organizationOnly = stored.ResolveByOrganizationProperties

	rules := normalizer.MergeRules(stored.AddressTransform, params.AddressTransform)
	if err := r.transformer.Init(rules); err != nil {
		return err
	}

	if r.organizationOnly {
		if err := r.ensurePortfolio(ctx); err != nil {
			return fmt.Errorf("resolver init: %w", err)
		}
	}
	return nil
}

// ensurePortfolio indexes the organization's properties once per
// session. Organization-only mode loads eagerly in Init, the standard
// flow lazily on its first suggestion attempt.
func (r *BillingPropertyResolver) ensurePortfolio(ctx context.Context) error {
	if r.portfolioLoaded {
		return nil
	}
	if err := r.finder.Load(ctx, r.properties, r.organizationID, r.cfg.PropertyChunkSize); err != nil {
		return fmt.Errorf("load organization properties: %w", err)
	}
	r.portfolioLoaded = true
	r.logger.Debug("organization properties indexed",
		zap.String("organizationId", r.organizationID),
		zap.Int("count", r.finder.Size()))
	return nil
}

// Resolve maps one billing address row onto a billing property. It
// never fails outright: every error, panic included, comes back as the
// failure variant of the result.
func (r *BillingPropertyResolver) Resolve(ctx context.Context, address string, meta *models.AddressMetaInput, unitType models.UnitType, unitName string) (result models.ResolutionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resolve panicked",
				zap.String("tin", r.tin),
				zap.String("address", address),
				zap.Any("panic", rec))
			result = models.ResolutionResult{
				Error:        models.ErrorAddressNotRecognized,
				ErrorMessage: fmt.Sprint(rec),
			}
		}
	}()

	if meta == nil {
		meta = &models.AddressMetaInput{}
	}
	resolved, err := r.resolve(ctx, address, meta, unitType, unitName)
	if err != nil {
		code := models.ErrorAddressNotRecognized
		var rerr *models.ResolveError
		if errors.As(err, &rerr) && rerr.Code != "" {
			code = rerr.Code
		}
		r.logger.Warn("address not resolved",
			zap.String("tin", r.tin),
			zap.String("contextId", r.contextID),
			zap.String("address", address),
			zap.String("code", code),
			zap.Error(err))
		return models.ResolutionResult{Error: code, ErrorMessage: err.Error()}
	}
	return resolved
}

func (r *BillingPropertyResolver) resolve(ctx context.Context, address string, meta *models.AddressMetaInput, unitType models.UnitType, unitName string) (models.ResolutionResult, error) {
	parsedFias := r.parseFias(meta.Fias)
	parsedAddress := r.parseAddress(address)

	// Warm the session cache for every spelling we may look up later:
	// the raw input, the identifier form and the parsed house part.
	rawParsed := models.ParsedAddress{
		Parsed:        strings.TrimSpace(address) != "",
		OriginalInput: address,
		Address:       strings.TrimSpace(address),
	}
	for _, parsed := range []models.ParsedAddress{rawParsed, parsedFias, parsedAddress} {
		if err := r.cache.Propagate(ctx, parsed, r.searchAddress); err != nil {
			return models.ResolutionResult{}, fmt.Errorf("normalization lookup: %w", err)
		}
	}

	if r.organizationOnly {
		return r.resolveByOrganizationProperties(ctx, parsedFias, parsedAddress, unitType, unitName)
	}

	chosenType, chosenName, err := chooseUnitParts(parsedFias, parsedAddress, unitType, unitName)
	if err != nil {
		return models.ResolutionResult{}, err
	}

	fiasSummary, err := r.searchSummary(ctx, parsedFias)
	if err != nil {
		return models.ResolutionResult{}, err
	}
	if fiasSummary.registeredInOrg {
		return r.accept(ctx, fiasSummary.billingProperty, fiasSummary, meta, chosenType, chosenName)
	}

	addressSummary, err := r.searchSummary(ctx, parsedAddress)
	if err != nil {
		return models.ResolutionResult{}, err
	}
	if addressSummary.registeredInOrg {
		return r.accept(ctx, addressSummary.billingProperty, fiasSummary, meta, chosenType, chosenName)
	}

	// A billing property that exists but is not linked to one of the
	// organization's own properties is still a valid answer; it only
	// warrants an operational warning.
	for _, summary := range []addressSearchSummary{fiasSummary, addressSummary} {
		if summary.billingProperty == nil {
			continue
		}
		r.logger.Warn("billing property matched outside organization registry",
			zap.String("tin", r.tin),
			zap.String("contextId", r.contextID),
			zap.String("billingPropertyId", summary.billingProperty.ID),
			zap.String("address", summary.OriginalInput))
		return r.accept(ctx, summary.billingProperty, fiasSummary, meta, chosenType, chosenName)
	}

	suggested, err := r.suggestFromOrganizationProperties(ctx, addressSummary)
	if err != nil {
		return models.ResolutionResult{}, err
	}
	if suggested != nil {
		return r.accept(ctx, suggested, fiasSummary, meta, chosenType, chosenName)
	}

	created, err := r.createBillingProperty(ctx, fiasSummary, addressSummary)
	if err != nil {
		return models.ResolutionResult{}, err
	}
	return models.ResolutionResult{BillingProperty: created, UnitType: chosenType, UnitName: chosenName}, nil
}

// accept finalizes a found billing property, patching the allowlisted
// fields the summaries can fill in.
func (r *BillingPropertyResolver) accept(ctx context.Context, property *models.BillingProperty, fiasSummary addressSearchSummary, meta *models.AddressMetaInput, unitType models.UnitType, unitName string) (models.ResolutionResult, error) {
	property = r.maybeUpdateBillingProperty(ctx, property, fiasSummary, meta)
	return models.ResolutionResult{BillingProperty: property, UnitType: unitType, UnitName: unitName}, nil
}

func (r *BillingPropertyResolver) maybeUpdateBillingProperty(ctx context.Context, property *models.BillingProperty, fiasSummary addressSearchSummary, meta *models.AddressMetaInput) *models.BillingProperty {
	var update models.BillingPropertyUpdate
	if property.GlobalID == "" {
		if fias := firstNonEmpty(fiasSummary.Fias, meta.GlobalID); fias != "" {
			update.GlobalID = &fias
		}
	}
	if property.ImportID == "" && meta.ImportID != "" {
		update.ImportID = &meta.ImportID
	}
	if update.IsEmpty() {
		return property
	}
	updated, err := r.billingProperties.Update(ctx, property.ID, update)
	if err != nil {
		r.logger.Warn("billing property update skipped",
			zap.String("billingPropertyId", property.ID),
			zap.Error(err))
		return property
	}
	return updated
}

// searchAddress is the session cache's single gateway to the external
// normalization service.
func (r *BillingPropertyResolver) searchAddress(ctx context.Context, address string) (*models.NormalizationResult, error) {
	filter := search.Filter{}
	if r.tin != "" {
		filter["helpers.tin"] = r.tin
	}
	return r.searchClient.Search(ctx, address, filter)
}

func (r *BillingPropertyResolver) parseFias(fias string) models.ParsedAddress {
	fias = strings.TrimSpace(fias)
	if fias == "" {
		return models.ParsedAddress{IsFias: true}
	}
	parsed := r.parser.Parse(parser.FiasPrefix + fias)
	parsed.OriginalInput = fias
	return parsed
}

func (r *BillingPropertyResolver) parseAddress(address string) models.ParsedAddress {
	if strings.TrimSpace(address) == "" {
		return models.ParsedAddress{}
	}
	parsed := r.parser.Parse(r.transformer.Apply(address))
	parsed.OriginalInput = address
	return parsed
}

// addressConditionValues derives the billing-property lookup keys for a
// parsed address, enriched from the session cache when the
// normalization service had an answer.
func (r *BillingPropertyResolver) addressConditionValues(parsed models.ParsedAddress) models.AddressConditionValues {
	cond := models.AddressConditionValues{OriginalInput: parsed.OriginalInput}
	if normalized, _ := r.cache.Get(parsed.Address); normalized != nil {
		if !parsed.IsFias {
			cond.Address = parsed.Address
		}
		cond.AddressKey = normalized.AddressKey
		cond.NormalizedAddress = normalized.Address
		cond.Fias = normalized.HouseFiasID()
	} else if !parsed.IsFias {
		cond.Address = parsed.Address
	} else {
		cond.Fias = strings.TrimPrefix(parsed.Address, parser.FiasPrefix)
	}
	return cond
}

// addressSearchSummary bundles one lookup attempt: the condition values,
// the billing property they found (if any) and whether that property is
// linked to the organization's own registry.
type addressSearchSummary struct {
	models.AddressConditionValues
	billingProperty *models.BillingProperty
	registeredInOrg bool
}

func (r *BillingPropertyResolver) searchSummary(ctx context.Context, parsed models.ParsedAddress) (addressSearchSummary, error) {
	summary := addressSearchSummary{AddressConditionValues: r.addressConditionValues(parsed)}
	property, err := r.billingProperties.FindFirst(ctx, r.contextID, summary.AddressConditionValues)
	if err != nil {
		return summary, fmt.Errorf("billing property lookup: %w", err)
	}
	summary.billingProperty = property
	if property != nil && property.PropertyID != "" {
		registered, err := r.properties.PropertyExists(ctx, property.PropertyID, r.organizationID)
		if err != nil {
			return summary, fmt.Errorf("property registration check: %w", err)
		}
		summary.registeredInOrg = registered
	}
	return summary, nil
}

// billingPropertyKey is the external import key of a summary: the
// normalized spelling when known, the parsed address otherwise. The
// original raw input never becomes a key.
func billingPropertyKey(summary addressSearchSummary) string {
	return firstNonEmpty(strings.TrimSpace(summary.NormalizedAddress), strings.TrimSpace(summary.Address))
}

func (r *BillingPropertyResolver) createBillingProperty(ctx context.Context, fiasSummary, addressSummary addressSearchSummary) (*models.BillingProperty, error) {
	address := firstNonEmpty(addressSummary.NormalizedAddress, addressSummary.Address, addressSummary.OriginalInput)
	if address == "" {
		return nil, models.NewResolveError(models.ErrorAddressNotRecognized, "no address to register a billing property under")
	}
	property := &models.BillingProperty{
		ContextID:         r.contextID,
		Address:           address,
		NormalizedAddress: addressSummary.NormalizedAddress,
		AddressKey:        addressSummary.AddressKey,
		GlobalID:          fiasSummary.Fias,
		ImportID:          billingPropertyKey(addressSummary),
	}
	created, err := r.billingProperties.Create(ctx, property)
	if err != nil {
		return nil, fmt.Errorf("create billing property: %w", err)
	}
	r.logger.Info("billing property created",
		zap.String("contextId", r.contextID),
		zap.String("billingPropertyId", created.ID),
		zap.String("address", created.Address))
	return created, nil
}

// suggestFromOrganizationProperties is the last stop before creating a
// new billing property: when the address is a near-complete, unambiguous
// respelling of exactly one organization property and a billing property
// already exists under that property's spelling, that one is reused
// instead of registering a duplicate.
func (r *BillingPropertyResolver) suggestFromOrganizationProperties(ctx context.Context, summary addressSearchSummary) (*models.BillingProperty, error) {
	variant := firstNonEmpty(summary.NormalizedAddress, summary.Address)
	if variant == "" {
		return nil, nil
	}
	if err := r.ensurePortfolio(ctx); err != nil {
		return nil, err
	}
	matches, score := r.finder.FindBestMatches(variant)
	if len(matches) != 1 || score <= suggestionScoreToPass {
		return nil, nil
	}
	best := matches[0]
	property, err := r.billingProperties.FindByAddress(ctx, r.contextID, best.Address, best.AddressKey)
	if err != nil {
		return nil, fmt.Errorf("billing property lookup: %w", err)
	}
	if property != nil {
		r.logger.Info("billing property reused through organization property match",
			zap.String("contextId", r.contextID),
			zap.String("billingPropertyId", property.ID),
			zap.String("propertyId", best.ID),
			zap.Float64("score", score))
	}
	return property, nil
}

// resolveByOrganizationProperties matches the address against the
// organization's own portfolio instead of the billing-property index.
// The match has to succeed before unit parts are even considered.
func (r *BillingPropertyResolver) resolveByOrganizationProperties(ctx context.Context, parsedFias, parsedAddress models.ParsedAddress, providedType models.UnitType, providedName string) (models.ResolutionResult, error) {
	cond := r.addressConditionValues(parsedAddress)
	variants := dedupeNonEmpty(parsedAddress.OriginalInput, parsedAddress.Address, cond.NormalizedAddress)

	var best *models.Property
	bestScore := 0.0
	for _, variant := range variants {
		matches, score := r.finder.FindBestMatches(variant)
		if len(matches) == 0 || score <= r.cfg.OrgMatchScore {
			continue
		}
		pick := matches[0]
		if len(matches) > 1 {
			pick = pickMostSimilar(variant, matches)
			r.logger.Warn("ambiguous organization property match",
				zap.String("organizationId", r.organizationID),
				zap.String("address", variant),
				zap.Int("tied", len(matches)),
				zap.Float64("score", score))
		}
		if score > bestScore {
			bestScore = score
			p := pick
			best = &p
		}
	}
	if best == nil {
		return models.ResolutionResult{}, models.NewResolveError(models.ErrorAddressNotRecognized,
			"no organization property matches %q", parsedAddress.OriginalInput)
	}

	unitType, unitName, err := chooseUnitParts(parsedFias, parsedAddress, providedType, providedName)
	if err != nil {
		return models.ResolutionResult{}, err
	}

	property, err := r.billingProperties.FindByAddress(ctx, r.contextID, best.Address, best.AddressKey)
	if err != nil {
		return models.ResolutionResult{}, fmt.Errorf("billing property lookup: %w", err)
	}
	if property == nil {
		property, err = r.billingProperties.Create(ctx, &models.BillingProperty{
			ContextID:  r.contextID,
			PropertyID: best.ID,
			Address:    best.Address,
			AddressKey: best.AddressKey,
			ImportID:   best.Address,
		})
		if err != nil {
			return models.ResolutionResult{}, fmt.Errorf("create billing property: %w", err)
		}
	}
	return models.ResolutionResult{BillingProperty: property, UnitType: unitType, UnitName: unitName}, nil
}

// pickMostSimilar breaks a token-score tie with string similarity;
// equal similarity keeps first-seen order.
func pickMostSimilar(address string, candidates []models.Property) models.Property {
	best := candidates[0]
	bestSim := matcher.Similarity(address, best.Address)
	for _, c := range candidates[1:] {
		if sim := matcher.Similarity(address, c.Address); sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best
}

// chooseUnitParts reconciles the three unit sources. Caller-provided
// values win outright; the identifier-parsed value fills an empty slot
// next; the address-parsed type additionally overrides an
// identifier-parsed type that is empty or the default flat.
func chooseUnitParts(parsedFias, parsedAddress models.ParsedAddress, providedType models.UnitType, providedName string) (models.UnitType, string, error) {
	unitType := providedType
	if unitType == "" {
		if parsedFias.Parsed {
			unitType = parsedFias.UnitType
		}
		if parsedAddress.Parsed && parsedAddress.UnitType != "" &&
			(unitType == "" || unitType == models.UnitTypeFlat) {
			unitType = parsedAddress.UnitType
		}
	}

	unitName := strings.TrimSpace(providedName)
	if unitName == "" && parsedFias.Parsed {
		unitName = parsedFias.UnitName
	}
	if unitName == "" && parsedAddress.Parsed {
		unitName = parsedAddress.UnitName
	}

	if unitName == "" {
		return "", "", models.NewResolveError(models.ErrorAddressNotResolvedUnitName, "no source supplied a unit name")
	}
	if unitType == "" {
		return "", "", models.NewResolveError(models.ErrorAddressNotResolvedUnitType, "no source supplied a unit type")
	}
	return unitType, unitName, nil
}

func dedupeNonEmpty(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
