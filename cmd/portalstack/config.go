// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v2"

	"github.com/juju/portalstack/core/spec"
	awsprovider "github.com/juju/portalstack/internal/provider/aws"
)

var configChecker = schema.FieldMap(schema.Fields{
	"name-prefix":                  schema.String(),
	"image":                        schema.String(),
	"domain":                       schema.String(),
	"vpc-id":                       schema.String(),
	"subnet-ids":                   schema.List(schema.String()),
	"allowed-ingress-group":        schema.String(),
	"repository":                   schema.String(),
	"registry-key-arn":             schema.String(),
	"db-host":                      schema.String(),
	"db-port":                      schema.ForceInt(),
	"db-credentials-arn":           schema.String(),
	"db-perimeter-group":           schema.String(),
	"identity-provider-secret-arn": schema.String(),
	"peer-admin-secret-arn":        schema.String(),
	"execution-role-arn":           schema.String(),
	"execution-role-name":          schema.String(),
	"hosted-zone-id":               schema.String(),
	"hosted-zone-name":             schema.String(),
	"log-bucket":                   schema.String(),
	"env":                          schema.StringMap(schema.String()),
	"secret-env":                   schema.StringMap(schema.String()),
	"title":                        schema.String(),
	"org-name":                     schema.String(),
	"public-hostname":              schema.String(),
	"customer-name":                schema.String(),
	"customer-logo-url":            schema.String(),
}, schema.Defaults{
	"image":             schema.Omit,
	"domain":            schema.Omit,
	"registry-key-arn":  schema.Omit,
	"env":               schema.Omit,
	"secret-env":        schema.Omit,
	"title":             schema.Omit,
	"org-name":          schema.Omit,
	"public-hostname":   schema.Omit,
	"customer-name":     schema.Omit,
	"customer-logo-url": schema.Omit,
})

// readConfig loads and validates a deployment configuration file and
// expands it into a provisioning request.
func readConfig(path string) (awsprovider.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return awsprovider.Request{}, errors.Annotatef(err, "reading config %q", path)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (awsprovider.Request, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return awsprovider.Request{}, errors.Annotate(err, "parsing config")
	}
	coerced, err := configChecker.Coerce(raw, nil)
	if err != nil {
		return awsprovider.Request{}, errors.NewNotValid(err, "invalid deployment config")
	}
	attrs := coerced.(map[string]interface{})

	secretEnv, err := parseSecretEnv(stringMap(attrs, "secret-env"))
	if err != nil {
		return awsprovider.Request{}, errors.Trace(err)
	}
	req := awsprovider.Request{
		Spec: spec.ServiceSpec{
			NamePrefix:    attrs["name-prefix"].(string),
			Image:         optString(attrs, "image"),
			Domain:        optString(attrs, "domain"),
			EnvVars:       stringMap(attrs, "env"),
			SecretEnvVars: secretEnv,
		},
		Network: spec.NetworkContext{
			VPCID:          attrs["vpc-id"].(string),
			SubnetIDs:      stringList(attrs["subnet-ids"]),
			AllowedIngress: attrs["allowed-ingress-group"].(string),
		},
		Registry: spec.RegistryContext{
			Repository: attrs["repository"].(string),
			Key:        keyOption(attrs),
		},
		Database: spec.DatabaseContext{
			Endpoint: spec.Endpoint{
				Host: attrs["db-host"].(string),
				Port: attrs["db-port"].(int),
			},
			Credentials: spec.SecretHandle{ARN: attrs["db-credentials-arn"].(string)},
			Perimeter:   attrs["db-perimeter-group"].(string),
		},
		Secrets: spec.SecretRefs{
			spec.RefIdentityProvider: {ARN: attrs["identity-provider-secret-arn"].(string)},
			spec.RefPeerAdmin:        {ARN: attrs["peer-admin-secret-arn"].(string)},
		},
		ExecutionRole: spec.RoleHandle{
			ARN:  attrs["execution-role-arn"].(string),
			Name: attrs["execution-role-name"].(string),
		},
		HostedZone: spec.ZoneHandle{
			ID:   attrs["hosted-zone-id"].(string),
			Name: attrs["hosted-zone-name"].(string),
		},
		LogBucket: spec.BucketHandle{Name: attrs["log-bucket"].(string)},
		Branding: spec.Branding{
			Title:           optString(attrs, "title"),
			OrgName:         optString(attrs, "org-name"),
			PublicHostname:  optString(attrs, "public-hostname"),
			CustomerName:    optString(attrs, "customer-name"),
			CustomerLogoURL: optString(attrs, "customer-logo-url"),
		},
	}
	return req, nil
}

func keyOption(attrs map[string]interface{}) spec.KeyOption {
	if arn := optString(attrs, "registry-key-arn"); arn != "" {
		return spec.WithKey(arn)
	}
	return spec.NoKey()
}

// parseSecretEnv expands "arn" or "arn#field" values into secret
// handles.
func parseSecretEnv(env map[string]string) (map[string]spec.SecretHandle, error) {
	out := make(map[string]spec.SecretHandle, len(env))
	for name, ref := range env {
		arn, field := ref, ""
		if i := strings.LastIndex(ref, "#"); i >= 0 {
			arn, field = ref[:i], ref[i+1:]
		}
		if arn == "" {
			return nil, errors.NotValidf("secret-env %q reference %q", name, ref)
		}
		out[name] = spec.SecretHandle{ARN: arn, Field: field}
	}
	return out, nil
}

func optString(attrs map[string]interface{}, key string) string {
	if v, ok := attrs[key]; ok {
		return v.(string)
	}
	return ""
}

func stringMap(attrs map[string]interface{}, key string) map[string]string {
	out := make(map[string]string)
	v, ok := attrs[key]
	if !ok {
		return out
	}
	for k, item := range v.(map[string]interface{}) {
		out[k] = item.(string)
	}
	return out
}

func stringList(v interface{}) []string {
	items := v.([]interface{})
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.(string)
	}
	return out
}
