package enrichment

// Evidence weights for signature matching.
const (
	PathWeight          = 30
	HeaderWeight        = 40
	BodyWeight          = 20
	ConfidenceThreshold = 30
	MaxConfidence       = 100
)

// Signature describes how to recognize one CMS, platform or framework. Header values of "*"
// match any value.
type Signature struct {
	Name         string
	Category     string
	Priority     string
	Paths        []string
	Headers      map[string]string
	BodyPatterns []string
}

// DefaultSignatures is the built-in signature table, checked in order.
var DefaultSignatures = []Signature{
	{
		Name: "WordPress", Category: "cms", Priority: "high",
		Paths:        []string{"/wp-content/", "/wp-includes/", "/wp-admin/", "/wp-login.php"},
		Headers:      map[string]string{"X-Powered-By": "WordPress"},
		BodyPatterns: []string{"wp-content", "wp-includes", "wordpress"},
	},
	{
		Name: "WooCommerce", Category: "ecommerce", Priority: "high",
		Paths:        []string{"/wp-content/plugins/woocommerce/"},
		BodyPatterns: []string{"woocommerce"},
	},
	{
		Name: "Joomla", Category: "cms", Priority: "high",
		Paths:        []string{"/administrator/", "/components/", "/modules/", "/templates/"},
		Headers:      map[string]string{"X-Content-Encoded-By": "Joomla"},
		BodyPatterns: []string{"joomla!", "/components/com_", "joomla"},
	},
	{
		Name: "Drupal", Category: "cms", Priority: "high",
		Paths:        []string{"/sites/default/", "/misc/drupal.js", "/core/", "/modules/"},
		Headers:      map[string]string{"X-Generator": "Drupal"},
		BodyPatterns: []string{"drupal.settings", "sites/default/files", "drupal"},
	},
	{
		Name: "SharePoint", Category: "cms", Priority: "high",
		Paths:        []string{"/_layouts/", "/_vti_bin/", "/_api/", "/_catalogs/"},
		Headers:      map[string]string{"MicrosoftSharePointTeamServices": "*", "SPRequestGuid": "*"},
		BodyPatterns: []string{"_spbodyonloadfunctionnames", "sharepoint"},
	},
	{
		Name: "Magento", Category: "ecommerce", Priority: "high",
		Paths:        []string{"/skin/frontend/", "/js/mage/", "/media/catalog/", "/magento_version"},
		BodyPatterns: []string{"mage.cookies", "var blank_url", "magento"},
	},
	{
		Name: "PrestaShop", Category: "ecommerce", Priority: "high",
		Paths:        []string{"/modules/", "/themes/", "/img/"},
		BodyPatterns: []string{"prestashop"},
	},
	{
		Name: "Shopify", Category: "ecommerce", Priority: "high",
		Headers:      map[string]string{"X-ShopId": "*"},
		BodyPatterns: []string{"cdn.shopify.com", "shopify.theme", "myshopify.com"},
	},
	{
		Name: "OpenCart", Category: "ecommerce", Priority: "medium",
		Paths:        []string{"/catalog/", "/image/"},
		BodyPatterns: []string{"catalog/view/theme/", "opencart"},
	},
	{
		Name: "Wix", Category: "website_builder", Priority: "high",
		Headers:      map[string]string{"X-Wix-Request-Id": "*", "X-Wix-Renderer-Server": "*"},
		BodyPatterns: []string{"wix.com", "wixsite.com", "x-wix-"},
	},
	{
		Name: "Squarespace", Category: "website_builder", Priority: "high",
		Headers:      map[string]string{"X-Served-By": "squarespace"},
		BodyPatterns: []string{"squarespace.com", "squarespace-cdn"},
	},
	{
		Name: "TYPO3", Category: "cms", Priority: "high",
		Paths:        []string{"/typo3/", "/typo3conf/", "/fileadmin/"},
		Headers:      map[string]string{"X-TYPO3-Parsetime": "*"},
		BodyPatterns: []string{"typo3"},
	},
	{
		Name: "Concrete5", Category: "cms", Priority: "medium",
		Paths:        []string{"/concrete/", "/packages/", "/application/"},
		BodyPatterns: []string{"concrete5", "concrete cms"},
	},
	{
		Name: "Umbraco", Category: "cms", Priority: "medium",
		Paths:        []string{"/umbraco/", "/umbraco_client/"},
		BodyPatterns: []string{"umbraco"},
	},
	{
		Name: "DotNetNuke", Category: "cms", Priority: "medium",
		Paths:        []string{"/Portals/", "/DesktopModules/", "/DNN_Platform/"},
		Headers:      map[string]string{"X-Powered-By": "DNN"},
		BodyPatterns: []string{"dotnetnuke", "dnn platform"},
	},
	{
		Name: "Sitefinity", Category: "cms", Priority: "medium",
		Paths:        []string{"/Sitefinity/", "/SFRes/"},
		BodyPatterns: []string{"sitefinity"},
	},
	{
		Name: "Kentico", Category: "cms", Priority: "medium",
		Paths:        []string{"/CMSPages/", "/CMSModules/"},
		BodyPatterns: []string{"kentico", "cmspages"},
	},
	{
		Name: "Craft", Category: "cms", Priority: "medium",
		Paths:        []string{"/cpresources/", "/actions/"},
		Headers:      map[string]string{"X-Powered-By": "Craft CMS"},
		BodyPatterns: []string{"craft cms", "craftcms"},
	},
	{
		Name: "Ghost", Category: "cms", Priority: "medium",
		Paths:        []string{"/ghost/", "/content/"},
		Headers:      map[string]string{"X-Powered-By": "Ghost"},
		BodyPatterns: []string{"ghost.org", "content/images/"},
	},
	{
		Name: "vBulletin", Category: "forum", Priority: "medium",
		Paths:        []string{"/vbulletin/", "/clientscript/"},
		BodyPatterns: []string{"vbulletin"},
	},
	{
		Name: "phpBB", Category: "forum", Priority: "medium",
		Paths:        []string{"/phpbb/", "/styles/"},
		BodyPatterns: []string{"phpbb", "powered by phpbb"},
	},
	{
		Name: "MyBB", Category: "forum", Priority: "medium",
		Paths:        []string{"/inc/", "/cache/"},
		BodyPatterns: []string{"mybb"},
	},
	{
		Name: "Discourse", Category: "forum", Priority: "medium",
		Headers:      map[string]string{"X-Discourse-Route": "*"},
		BodyPatterns: []string{"discourse"},
	},
	{
		Name: "Confluence", Category: "wiki", Priority: "high",
		Paths:        []string{"/confluence/", "/wiki/"},
		Headers:      map[string]string{"X-Confluence-Request-Time": "*"},
		BodyPatterns: []string{"confluence"},
	},
	{
		Name: "MediaWiki", Category: "wiki", Priority: "medium",
		Paths:        []string{"/mediawiki/", "/wiki/"},
		Headers:      map[string]string{"X-Powered-By": "MediaWiki"},
		BodyPatterns: []string{"mediawiki", "mw-data"},
	},
	{
		Name: "ASP.NET", Category: "framework", Priority: "low",
		Headers:      map[string]string{"X-AspNet-Version": "*", "X-Powered-By": "ASP.NET"},
		BodyPatterns: []string{"__viewstate", "__eventvalidation"},
	},
	{
		Name: "Laravel", Category: "framework", Priority: "low",
		Headers:      map[string]string{"X-Powered-By": "Laravel"},
		BodyPatterns: []string{"laravel", "csrf-token"},
	},
	{
		Name: "Django", Category: "framework", Priority: "low",
		Headers:      map[string]string{"X-Frame-Options": "DENY"},
		BodyPatterns: []string{"csrfmiddlewaretoken", "django"},
	},
	{
		Name: "Express", Category: "framework", Priority: "low",
		Headers: map[string]string{"X-Powered-By": "Express"},
	},
}

// ProbePaths returns the distinct signature paths, in table order, capped at limit
// (no cap when limit <= 0).
func ProbePaths(signatures []Signature, limit int) []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, sig := range signatures {
		for _, p := range sig.Paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
			if limit > 0 && len(paths) == limit {
				return paths
			}
		}
	}
	return paths
}
