// idpctl es la CLI del IdP mock: pide tokens, los inspecciona y prepara
// material (hashes de secretos, claves de firma) para config.yaml.
package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/dropDatabas3/mockidp/internal/config"
	jwtx "github.com/dropDatabas3/mockidp/internal/jwt"
	"github.com/dropDatabas3/mockidp/internal/security/password"
	"github.com/dropDatabas3/mockidp/internal/store/pg"
)

type client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	OutFormat    string // "json" | "text"
	HTTP         *http.Client
}

func (c *client) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// form hace POST x-www-form-urlencoded con Basic auth del cliente.
func (c *client) form(path string, v url.Values) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.url(path), strings.NewReader(v.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.ClientID != "" {
		req.SetBasicAuth(url.QueryEscape(c.ClientID), url.QueryEscape(c.ClientSecret))
	}
	return c.send(req)
}

func (c *client) get(path string) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.url(path), nil)
	if err != nil {
		return 0, nil, err
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

// ctx devuelve un contexto que x/oauth2 usa para tomar nuestro http.Client.
func (c *client) ctx(parent context.Context) context.Context {
	return context.WithValue(parent, oauth2.HTTPClient, c.HTTP)
}

func main() {
	var (
		baseURL      = envOr("MOCKIDP_URL", "http://localhost:8080")
		clientID     = envOr("MOCKIDP_CLIENT_ID", "test-client")
		clientSecret = envOr("MOCKIDP_CLIENT_SECRET", "test-secret")
		out          = envOr("MOCKIDP_OUT", "json")
		timeout      = 15 * time.Second
	)

	root := &cobra.Command{
		Use:           "idpctl",
		Short:         "CLI del IdP mock (token, introspect, revoke, jwks)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del IdP (env MOCKIDP_URL)")
	root.PersistentFlags().StringVar(&clientID, "client-id", clientID, "client_id (env MOCKIDP_CLIENT_ID)")
	root.PersistentFlags().StringVar(&clientSecret, "client-secret", clientSecret, "client_secret (env MOCKIDP_CLIENT_SECRET)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	// los flags se resuelven en Execute, así que el cliente se arma tarde
	cl := &client{}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		*cl = client{
			BaseURL:      baseURL,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			OutFormat:    out,
			HTTP:         &http.Client{Timeout: timeout},
		}
	}

	root.AddCommand(
		tokenCmd(cl),
		tokenOpCmd(cl, "introspect", "/introspect", "Introspección RFC 7662 de un token"),
		tokenOpCmd(cl, "revoke", "/revoke", "Revoca un access o refresh token (RFC 7009)"),
		&cobra.Command{
			Use:   "jwks",
			Short: "Muestra el JWKS público (/certs)",
			RunE: func(cmd *cobra.Command, args []string) error {
				status, body, err := cl.get("/certs")
				if err != nil {
					return err
				}
				if status/100 != 2 {
					return fmt.Errorf("jwks fallo: status=%d body=%s", status, string(body))
				}
				cl.print(status, body)
				return nil
			},
		},
		hashSecretCmd(),
		keygenCmd(),
		migrateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func tokenCmd(cl *client) *cobra.Command {
	var grant, username, pass, scope string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Pide un token (client_credentials | password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cl.ctx(cmd.Context())
			var scopes []string
			if scope != "" {
				scopes = strings.Fields(scope)
			}
			endpoint := oauth2.Endpoint{TokenURL: cl.url("/token"), AuthStyle: oauth2.AuthStyleInHeader}

			var (
				tok *oauth2.Token
				err error
			)
			switch grant {
			case "client_credentials":
				cc := clientcredentials.Config{
					ClientID:     cl.ClientID,
					ClientSecret: cl.ClientSecret,
					TokenURL:     endpoint.TokenURL,
					Scopes:       scopes,
					AuthStyle:    endpoint.AuthStyle,
				}
				tok, err = cc.Token(ctx)
			case "password":
				if username == "" {
					return fmt.Errorf("--username es requerido para grant password")
				}
				oc := oauth2.Config{
					ClientID:     cl.ClientID,
					ClientSecret: cl.ClientSecret,
					Endpoint:     endpoint,
					Scopes:       scopes,
				}
				tok, err = oc.PasswordCredentialsToken(ctx, username, pass)
			default:
				return fmt.Errorf("--grant %q no soportado (client_credentials|password)", grant)
			}
			if err != nil {
				return fmt.Errorf("token fallo: %w", err)
			}

			res := map[string]any{
				"access_token": tok.AccessToken,
				"token_type":   tok.TokenType,
				"expires_in":   tok.ExpiresIn,
			}
			if tok.RefreshToken != "" {
				res["refresh_token"] = tok.RefreshToken
			}
			for _, k := range []string{"id_token", "scope"} {
				if v, ok := tok.Extra(k).(string); ok && v != "" {
					res[k] = v
				}
			}
			if cl.OutFormat == "text" {
				fmt.Println(tok.AccessToken)
				return nil
			}
			b, _ := json.Marshal(res)
			cl.print(http.StatusOK, b)
			return nil
		},
	}
	cmd.Flags().StringVar(&grant, "grant", "client_credentials", "Grant: client_credentials|password")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Usuario (grant password)")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "Password (grant password)")
	cmd.Flags().StringVar(&scope, "scope", "", "Scopes separados por espacio")
	return cmd
}

// tokenOpCmd cubre introspect y revoke: ambos reciben token + hint.
func tokenOpCmd(cl *client, use, path, short string) *cobra.Command {
	var hint string
	cmd := &cobra.Command{
		Use:   use + " <token>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := url.Values{"token": {args[0]}}
			if hint != "" {
				v.Set("token_type_hint", hint)
			}
			status, body, err := cl.form(path, v)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("%s fallo: status=%d body=%s", use, status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "token_type_hint: access_token|refresh_token")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	var useBcrypt bool
	cmd := &cobra.Command{
		Use:   "hash-secret <plain>",
		Short: "Hashea un secreto o password para config.yaml (argon2id por defecto)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := password.Hash
			if useBcrypt {
				hash = password.HashBcrypt
			}
			h, err := hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useBcrypt, "bcrypt", false, "Usar bcrypt en vez de argon2id")
	return cmd
}

func keygenCmd() *cobra.Command {
	var pemOut string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera una clave RS256 y muestra su JWK público",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := jwtx.GenerateSigningKey()
			if err != nil {
				return err
			}
			set, err := jwtx.BuildJWKS([]jwtx.SigningKey{k.PublicOnly()})
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(set, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))

			if pemOut == "" {
				return nil
			}
			der, err := x509.MarshalPKCS8PrivateKey(k.Private)
			if err != nil {
				return err
			}
			p := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
			if err := os.WriteFile(pemOut, p, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "clave privada (kid=%s) escrita en %s\n", k.KID, pemOut)
			return nil
		},
	}
	cmd.Flags().StringVar(&pemOut, "pem-out", "", "Escribe la clave privada PKCS#8 en este archivo")
	return cmd
}

// migrateCmd aplica las migraciones embebidas sin levantar el IdP.
func migrateCmd() *cobra.Command {
	var configPath, dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica migraciones de Postgres (tabla oauth_clients)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				dsn = cfg.Storage.DSN
			}
			if dsn == "" {
				return fmt.Errorf("falta DSN (--dsn o storage.dsn en %s)", configPath)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			st, err := pg.Open(ctx, dsn, pg.PoolConfig{MaxConns: 2})
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "ruta a config.yaml (para storage.dsn)")
	cmd.Flags().StringVar(&dsn, "dsn", envOr("STORAGE_DSN", ""), "DSN de Postgres (env STORAGE_DSN)")
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
