package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v2"

	"github.com/spf13/viper"
)

// configgen разворачивает базовый шаблон .pipsecure.base.yaml в рабочий
// configs/values_local.yaml: на каждый логин из base.accounts — полный блок
// счёта с унаследованными дефолтами. Токены в файл не попадают, их сервис
// дотягивает из env (BRIDGE_TOKEN_<LOGIN>).

const defaultOutName = "values_local.yaml"

func buildAccount(base *viper.Viper, login int64) map[string]interface{} {
	account := map[string]interface{}{
		"login":   login,
		"name":    fmt.Sprintf("account-%d", login),
		"enabled": true,
	}

	bridgePattern := base.GetString("bridge_url_pattern")
	if bridgePattern == "" {
		bridgePattern = "http://127.0.0.1:%d"
	}
	account["bridge_url"] = fmt.Sprintf(bridgePattern, login)

	// пер-аккаунтные оверрайды base.overrides.<login> поверх дефолтов
	if sub := base.Sub(fmt.Sprintf("overrides.%d", login)); sub != nil {
		for k, v := range sub.AllSettings() {
			account[k] = v
		}
	}
	return account
}

func writeConfig(settings map[string]interface{}, outPath string) error {
	bs, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal config to yaml")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "create configs dir")
	}
	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	defer out.Close()
	if _, err := out.Write(bs); err != nil {
		_ = os.Remove(out.Name())
		return errors.Wrap(err, "write content")
	}
	return nil
}

func main() {
	viper.SetConfigName(".pipsecure.base")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	logins := viper.GetIntSlice("accounts")
	if len(logins) == 0 {
		panic("has no accounts in config")
	}

	accounts := make([]interface{}, 0, len(logins))
	for _, login := range logins {
		accounts = append(accounts, buildAccount(viper.GetViper(), int64(login)))
	}

	result := map[string]interface{}{
		"service_name": viper.GetString("service_name"),
		"log_level":    viper.GetString("log_level"),
		"health":       viper.GetStringMap("health"),
		"tracing":      viper.GetStringMap("tracing"),
		"events":       viper.GetStringMap("events"),
		"defaults":     viper.GetStringMap("defaults"),
		"accounts":     accounts,
	}

	outName := viper.GetString("out")
	if outName == "" {
		outName = defaultOutName
	}
	outPath := filepath.Join("configs", outName)

	if err := writeConfig(result, outPath); err != nil {
		panic(fmt.Errorf("can't generate result config: %w", err))
	}
	fmt.Printf("%s file complete\n", outPath)
	fmt.Println("done")
}
