package model

// Builtin returns the object types every installation knows about.
func Builtin() []TypeInfo {
	return []TypeInfo{
		{
			Name:                  "cms.site",
			IDColumn:              "SiteID",
			CodeNameColumn:        "SiteName",
			GUIDColumn:            "SiteGUID",
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.role",
			IDColumn:              "RoleID",
			CodeNameColumn:        "RoleName",
			GUIDColumn:            "RoleGUID",
			SiteScoped:            true,
			Dependencies:          []string{"cms.site"},
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.user",
			IDColumn:              "UserID",
			CodeNameColumn:        "UserName",
			GUIDColumn:            "UserGUID",
			ContinuousIntegration: true,
			Searchable:            true,
		},
		{
			Name:                  "cms.userrole",
			IDColumn:              "UserRoleID",
			CodeNameColumn:        "UserRoleName",
			ParentType:            "cms.user",
			Dependencies:          []string{"cms.role"},
			SiteScoped:            true,
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.settingskey",
			IDColumn:              "KeyID",
			CodeNameColumn:        "KeyName",
			GUIDColumn:            "KeyGUID",
			SiteScoped:            true,
			Dependencies:          []string{"cms.site"},
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.country",
			IDColumn:              "CountryID",
			CodeNameColumn:        "CountryName",
			GUIDColumn:            "CountryGUID",
			ByType:                true,
			Optimize:              true,
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.state",
			IDColumn:              "StateID",
			CodeNameColumn:        "StateName",
			GUIDColumn:            "StateGUID",
			ParentType:            "cms.country",
			ByType:                true,
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.pagetemplate",
			IDColumn:              "PageTemplateID",
			CodeNameColumn:        "PageTemplateCodeName",
			GUIDColumn:            "PageTemplateGUID",
			ParentType:            "cms.pagetemplate",
			ContinuousIntegration: true,
			Searchable:            true,
		},
		{
			Name:                  "cms.emailtemplate",
			IDColumn:              "EmailTemplateID",
			CodeNameColumn:        "EmailTemplateName",
			GUIDColumn:            "EmailTemplateGUID",
			SiteScoped:            true,
			Dependencies:          []string{"cms.site"},
			ContinuousIntegration: true,
		},
		{
			Name:                  "cms.newsletteremailtemplate",
			OriginalType:          "cms.emailtemplate",
			IDColumn:              "EmailTemplateID",
			CodeNameColumn:        "EmailTemplateName",
			GUIDColumn:            "EmailTemplateGUID",
			SiteScoped:            true,
			Dependencies:          []string{"cms.site"},
			ContinuousIntegration: true,
		},
		{
			Name:                  SecretsType,
			IDColumn:              "SecretID",
			CodeNameColumn:        "SecretName",
			GUIDColumn:            "SecretGUID",
			ContinuousIntegration: true,
		},
	}
}

// NewBuiltinCatalog returns a catalog holding the builtin types.
func NewBuiltinCatalog() *Catalog {
	c := NewCatalog()
	for _, t := range Builtin() {
		// Builtin names are unique.
		_ = c.Register(t)
	}
	return c
}
